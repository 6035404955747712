package config

import (
	"io/fs"

	"git.lost.host/meutraa/beatjudge/internal/judge"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// LoadCriteria reads judge windows from a YAML file in fsys. Windows the
// file leaves out keep their defaults, and no file at all means the
// defaults.
func LoadCriteria(fsys fs.FS, file string) (judge.Criteria, error) {
	c := judge.DefaultCriteria()
	if file == "" {
		return c, nil
	}
	f, err := fsys.Open(file)
	if nil != err {
		return c, errors.Wrap(err, "could not open criteria")
	}
	defer f.Close()
	if err := yaml.NewDecoder(f).Decode(&c); nil != err {
		return c, errors.Wrap(err, "could not decode criteria")
	}
	return c, c.Validate()
}
