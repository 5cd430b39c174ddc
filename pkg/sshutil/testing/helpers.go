package testing

// WithLoad sets the load averages the client will report.
func WithLoad(client *MockClient, load1, load5, load15 float64) *MockClient {
	client.Proc().SetLoad(load1, load5, load15)
	return client
}

// WithMemoryMB sets total and used memory, given in megabytes, that the
// client will report through free -k.
func WithMemoryMB(client *MockClient, totalMB, usedMB int64) *MockClient {
	client.Proc().SetMemory(totalMB*1024, usedMB*1024)
	return client
}

// WithFailingCommand makes cmd exit non-zero with the given stderr.
func WithFailingCommand(client *MockClient, cmd string, exitCode int, stderr string) *MockClient {
	client.SetCommandResponse(cmd, CommandResponse{ExitCode: exitCode, Stderr: []byte(stderr)})
	return client
}
