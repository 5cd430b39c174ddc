package sshutil

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/kevinburke/ssh_config"
)

// Alias is a concrete Host entry from ~/.ssh/config that a monitored host
// can point at. Zero fields were not set in the file.
type Alias struct {
	Name     string
	HostName string
	User     string
	Port     int
}

// Label renders the alias for a picker, e.g. "db (10.0.0.9, ops@, port 2222)".
func (a Alias) Label() string {
	var parts []string
	if a.HostName != "" && a.HostName != a.Name {
		parts = append(parts, a.HostName)
	}
	if a.User != "" {
		parts = append(parts, a.User+"@")
	}
	if a.Port != 0 && a.Port != DefaultPort {
		parts = append(parts, fmt.Sprintf("port %d", a.Port))
	}
	if len(parts) == 0 {
		return a.Name
	}
	return a.Name + " (" + strings.Join(parts, ", ") + ")"
}

// Defaults fills an unset user or port from the alias. Values already set
// by the caller win.
func (a Alias) Defaults(user string, port int) (string, int) {
	if user == "" {
		user = a.User
	}
	if port == 0 {
		port = a.Port
	}
	return user, port
}

// LoadAliases lists the concrete host aliases in an SSH config file, sorted
// by name. An empty path means ~/.ssh/config. A missing file yields no
// aliases and no error.
func LoadAliases(path string) ([]Alias, error) {
	cfg, err := loadSSHConfig(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var aliases []Alias
	seen := make(map[string]bool)
	for _, host := range cfg.Hosts {
		for _, pattern := range host.Patterns {
			name := pattern.String()
			if seen[name] || strings.ContainsAny(name, "*?!") {
				continue
			}
			seen[name] = true

			a := Alias{Name: name}
			a.HostName, _ = cfg.Get(name, "HostName")
			a.User, _ = cfg.Get(name, "User")
			if p, _ := cfg.Get(name, "Port"); p != "" {
				a.Port, _ = strconv.Atoi(p)
			}
			aliases = append(aliases, a)
		}
	}

	sort.Slice(aliases, func(i, j int) bool { return aliases[i].Name < aliases[j].Name })
	return aliases, nil
}

// FindAlias returns the alias with the given name.
func FindAlias(aliases []Alias, name string) (Alias, bool) {
	for _, a := range aliases {
		if a.Name == name {
			return a, true
		}
	}
	return Alias{}, false
}

// loadSSHConfig decodes an SSH config file. ssh_config can't parse Match
// blocks, so everything from the first Match line on is ignored.
func loadSSHConfig(path string) (*ssh_config.Config, error) {
	if path == "" {
		path = filepath.Join(homeDir(), ".ssh", "config")
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ssh_config.Decode(bytes.NewReader(beforeMatch(content)))
}

func beforeMatch(content []byte) []byte {
	lines := bytes.Split(content, []byte("\n"))
	for i, line := range lines {
		trimmed := strings.ToLower(strings.TrimSpace(string(line)))
		if strings.HasPrefix(trimmed, "match ") {
			return bytes.Join(lines[:i], []byte("\n"))
		}
	}
	return content
}
