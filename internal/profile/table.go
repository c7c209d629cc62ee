package profile

import (
	"io/fs"

	"github.com/pkg/errors"
	"sigs.k8s.io/yaml"

	"github.com/wnxd/microtrace/syscalls"
)

type Table map[uint64]*syscalls.Prototype

type tableFile struct {
	Syscalls []syscalls.Prototype `json:"syscalls"`
}

func LoadTable(data []byte) (Table, error) {
	var file tableFile
	if err := yaml.UnmarshalStrict(data, &file); err != nil {
		return nil, errors.Wrap(err, "parse prototype table")
	}
	table := make(Table, len(file.Syscalls))
	for i := range file.Syscalls {
		proto := &file.Syscalls[i]
		if proto.Name == "" {
			return nil, errors.Errorf("prototype %d has no name", proto.Number)
		}
		if _, ok := table[proto.Number]; ok {
			return nil, errors.Errorf("duplicate prototype %d (%s)", proto.Number, proto.Name)
		}
		table[proto.Number] = proto
	}
	return table, nil
}

func LoadTableFS(fsys fs.FS, name string) (Table, error) {
	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		return nil, errors.Wrapf(err, "read prototype table %s", name)
	}
	table, err := LoadTable(data)
	if err != nil {
		return nil, errors.Wrap(err, name)
	}
	return table, nil
}
