// Package validator checks generated MySQL-family statements with the TiDB
// parser. Results only feed statistics; invalid SQL is still executed.
package validator

import (
	"github.com/pingcap/tidb/pkg/parser"
	_ "github.com/pingcap/tidb/pkg/types/parser_driver" // Register TiDB parser driver.
	"github.com/pkg/errors"
)

// Validator wraps the TiDB parser. It is not safe for concurrent use; each
// runner owns one.
type Validator struct {
	parser *parser.Parser
}

// New returns a Validator instance.
func New() *Validator {
	return &Validator{parser: parser.New()}
}

// Validate parses a SQL statement and returns any syntax error.
func (v *Validator) Validate(sql string) error {
	_, _, err := v.parser.Parse(sql, "", "")
	return err
}

// ValidateAll returns the first statement that fails to parse.
func (v *Validator) ValidateAll(sqls ...string) error {
	for _, sql := range sqls {
		if err := v.Validate(sql); err != nil {
			return errors.Wrapf(err, "parse %q", sql)
		}
	}
	return nil
}
