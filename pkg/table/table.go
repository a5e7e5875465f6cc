package table

import (
	"fmt"

	"github.com/dataforge/dataforge/dfapi"
	"github.com/dataforge/dataforge/pkg/names"
)

// Table is an in-memory tabular data structure with attached metadata.
// Every column carries its own dfapi.VariableMeta, kept in the table's
// metadata envelope under the column name.
type Table struct {
	Meta    dfapi.TableMeta
	columns []*Series
}

// NewTable creates an empty table with the given short name.
//
// Errors:
//
//    - dataforge-error-name -- when the name is not in snake_case
func NewTable(shortName string) (*Table, error) {
	if err := names.ValidateUnderscore(shortName, "table short name"); err != nil {
		return nil, err
	}
	t := &Table{}
	t.Meta.ShortName = dfapi.String(shortName)
	return t, nil
}

// AddColumn appends a column to the table.
// The first column fixes the table length; later columns must match it.
// Column metadata defaults to an empty envelope and can be filled in
// afterwards via Meta.SetField.
//
// Errors:
//
//    - dataforge-error-name -- when the column name is not in snake_case
//    - dataforge-error-invalid -- when the column length disagrees with the
//      table, or a column of that name already exists
func (t *Table) AddColumn(s *Series) error {
	if err := names.ValidateUnderscore(s.Name, "column name"); err != nil {
		return err
	}
	if len(t.columns) > 0 && s.Len() != t.Len() {
		return dfapi.ErrorInvalid(
			fmt.Sprintf("column %q has %d rows but the table has %d", s.Name, s.Len(), t.Len()),
			[2]string{"column", s.Name})
	}
	for _, existing := range t.columns {
		if existing.Name == s.Name {
			return dfapi.ErrorInvalid(
				fmt.Sprintf("table already has a column named %q", s.Name),
				[2]string{"column", s.Name})
		}
	}
	t.columns = append(t.columns, s)
	t.Meta.SetField(s.Name, t.Meta.Field(s.Name))
	return nil
}

// Column returns the named column.
//
// Errors:
//
//    - dataforge-error-invalid -- when no column of that name exists
func (t *Table) Column(name string) (*Series, error) {
	for _, s := range t.columns {
		if s.Name == name {
			return s, nil
		}
	}
	return nil, dfapi.ErrorInvalid(
		fmt.Sprintf("table has no column named %q", name),
		[2]string{"column", name})
}

// Columns returns the column names, in insertion order.
func (t *Table) Columns() []string {
	result := make([]string, len(t.columns))
	for i, s := range t.columns {
		result[i] = s.Name
	}
	return result
}

// AllColumns returns the columns themselves, in insertion order.
func (t *Table) AllColumns() []*Series {
	return t.columns
}

// Len returns the number of rows.
func (t *Table) Len() int {
	if len(t.columns) == 0 {
		return 0
	}
	return t.columns[0].Len()
}

// SetPrimaryKey declares which columns form the table's index.
//
// Errors:
//
//    - dataforge-error-invalid -- when a named column does not exist
func (t *Table) SetPrimaryKey(cols []string) error {
	for _, name := range cols {
		if _, err := t.Column(name); err != nil {
			return err
		}
	}
	t.Meta.PrimaryKey = cols
	return nil
}

// PrimaryKey returns the index columns, or nil when the table has none.
func (t *Table) PrimaryKey() []string {
	return t.Meta.PrimaryKey
}

// Name returns the table's short name, or empty when unset.
func (t *Table) Name() string {
	if t.Meta.ShortName == nil {
		return ""
	}
	return *t.Meta.ShortName
}

// Equal reports whether two tables hold the same columns with the same
// values and the same primary key. Metadata beyond the key is not compared.
func (t *Table) Equal(o *Table) bool {
	if len(t.columns) != len(o.columns) {
		return false
	}
	for i := range t.columns {
		if !t.columns[i].Equal(o.columns[i]) {
			return false
		}
	}
	if len(t.Meta.PrimaryKey) != len(o.Meta.PrimaryKey) {
		return false
	}
	for i := range t.Meta.PrimaryKey {
		if t.Meta.PrimaryKey[i] != o.Meta.PrimaryKey[i] {
			return false
		}
	}
	return true
}
