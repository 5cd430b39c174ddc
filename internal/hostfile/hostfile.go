// Package hostfile reads and writes host registries as YAML, for bulk
// import and for moving a fleet between databases.
//
//	hosts:
//	  - name: web-1
//	    address: 10.0.0.5
//	    port: 22
//	    username: monitor
//	    password: secret
package hostfile

import (
	"bytes"
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rileyhilliard/loadwatch/internal/errors"
	"github.com/rileyhilliard/loadwatch/internal/store"
	"gopkg.in/yaml.v3"
)

// File is the document root.
type File struct {
	Hosts []Entry `yaml:"hosts"`
}

// Entry is one host. Password is omitted from exports unless secrets are
// requested, and is required on import.
type Entry struct {
	Name     string `yaml:"name"`
	Address  string `yaml:"address"`
	Port     int    `yaml:"port,omitempty"`
	Username string `yaml:"username"`
	Password string `yaml:"password,omitempty"`
}

// Registry is the part of the store import and export need.
type Registry interface {
	AddHost(ctx context.Context, h *store.Host) error
	ListHosts(ctx context.Context) ([]store.Host, error)
}

// Result reports what an import did, by host name.
type Result struct {
	Added   []string
	Skipped []string
}

// Read decodes a host file. Unknown keys are rejected so typos like
// "adress" fail loudly instead of importing an empty field.
func Read(r io.Reader) (*File, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var f File
	if err := dec.Decode(&f); err != nil {
		if stderrors.Is(err, io.EOF) {
			return &File{}, nil
		}
		return nil, errors.WrapWithCode(err, errors.ErrParse,
			"Host file is not valid",
			"Expect a top-level 'hosts' list with name, address, port, username and password")
	}
	return &f, nil
}

// ReadFile reads a host file from disk.
func ReadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrConfig,
			"Cannot read host file "+path,
			"Check the path is correct")
	}
	return Read(bytes.NewReader(data))
}

// Write encodes f as YAML.
func Write(w io.Writer, f *File) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(f); err != nil {
		return fmt.Errorf("encode host file: %w", err)
	}
	return enc.Close()
}

// Validate checks every entry before anything is written, so a bad line
// never leaves a half-imported fleet behind.
func (f *File) Validate() error {
	seen := make(map[string]int, len(f.Hosts))
	var problems []string

	for i, e := range f.Hosts {
		h := e.host()
		label := fmt.Sprintf("entry %d", i+1)
		if h.Name != "" {
			label += " (" + h.Name + ")"
		}

		if err := h.Validate(); err != nil {
			problems = append(problems, label+": "+err.Error())
			continue
		}
		if e.Password == "" {
			problems = append(problems, label+": password is required")
		}
		if first, dup := seen[h.Name]; dup {
			problems = append(problems, fmt.Sprintf("%s: duplicates entry %d", label, first))
			continue
		}
		seen[h.Name] = i + 1
	}

	if len(problems) > 0 {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("Host file has %d invalid entries:\n  %s", len(problems), strings.Join(problems, "\n  ")),
			"Fix the entries above and import again. Nothing was imported.")
	}
	return nil
}

// Import validates f and registers each host. Hosts whose name is already
// registered are skipped and reported, not overwritten.
func Import(ctx context.Context, reg Registry, f *File) (*Result, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}

	res := &Result{}
	for _, e := range f.Hosts {
		h := e.host()
		err := reg.AddHost(ctx, h)
		switch {
		case err == nil:
			res.Added = append(res.Added, h.Name)
		case stderrors.Is(err, store.ErrAlreadyExists):
			res.Skipped = append(res.Skipped, h.Name)
		default:
			return res, errors.WrapWithCode(err, errors.ErrStore,
				"Failed to import host "+h.Name,
				"Hosts before it were imported; re-running the import skips them")
		}
	}
	return res, nil
}

// Export returns every registered host in name order.
func Export(ctx context.Context, reg Registry, withSecrets bool) (*File, error) {
	hosts, err := reg.ListHosts(ctx)
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrStore, "Failed to list hosts", "")
	}

	f := &File{Hosts: make([]Entry, 0, len(hosts))}
	for _, h := range hosts {
		e := Entry{Name: h.Name, Address: h.Address, Port: h.Port, Username: h.Username}
		if withSecrets {
			e.Password = h.Password
		}
		f.Hosts = append(f.Hosts, e)
	}
	return f, nil
}

func (e Entry) host() *store.Host {
	return &store.Host{
		Name:     e.Name,
		Address:  e.Address,
		Port:     e.Port,
		Username: e.Username,
		Password: e.Password,
	}
}
