package database

import (
	"database/sql"
	"fmt"
	"reflect"
)

// dbColumns walks the `db:` tagged fields of a struct value.
// Fields tagged "-" or untagged are ignored.
func dbColumns(v reflect.Value, fn func(col string, field reflect.Value)) {
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		tag := t.Field(i).Tag.Get("db")
		if tag == "" || tag == "-" {
			continue
		}
		fn(tag, v.Field(i))
	}
}

func structValue(record interface{}) reflect.Value {
	v := reflect.ValueOf(record)
	if v.Kind() == reflect.Ptr {
		v = v.Elem()
	}
	return v
}

// insertColumns extracts column names, placeholders and values for an
// INSERT. A zero "id" column is left out so the database assigns it.
func insertColumns(record interface{}) (cols, placeholders []string, vals []interface{}) {
	dbColumns(structValue(record), func(col string, f reflect.Value) {
		if col == "id" && f.IsZero() {
			return
		}
		cols = append(cols, col)
		placeholders = append(placeholders, "?")
		vals = append(vals, f.Interface())
	})
	return
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// scanRows scans rows into a slice of structs (or struct pointers) by column name.
func scanRows(rows *sql.Rows, dest interface{}) error {
	cols, err := rows.Columns()
	if err != nil {
		return err
	}

	dv := reflect.ValueOf(dest)
	if dv.Kind() != reflect.Ptr || dv.Elem().Kind() != reflect.Slice {
		return fmt.Errorf("select: dest must be a pointer to a slice")
	}
	sliceVal := dv.Elem()
	elemType := sliceVal.Type().Elem()
	isPtr := elemType.Kind() == reflect.Ptr
	if isPtr {
		elemType = elemType.Elem()
	}

	for rows.Next() {
		elem := reflect.New(elemType).Elem()
		if err := rows.Scan(fieldPointers(elem, cols)...); err != nil {
			return err
		}
		if isPtr {
			sliceVal.Set(reflect.Append(sliceVal, elem.Addr()))
		} else {
			sliceVal.Set(reflect.Append(sliceVal, elem))
		}
	}
	return rows.Err()
}

// scanOne scans the first row into dest, which must point to a struct or
// a scalar. Returns sql.ErrNoRows when the result set is empty.
func scanOne(rows *sql.Rows, dest interface{}) error {
	dv := reflect.ValueOf(dest)
	if dv.Kind() != reflect.Ptr {
		return fmt.Errorf("get: dest must be a pointer")
	}
	cols, err := rows.Columns()
	if err != nil {
		return err
	}
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return err
		}
		return sql.ErrNoRows
	}
	elem := dv.Elem()
	if elem.Kind() != reflect.Struct {
		return rows.Scan(dest)
	}
	return rows.Scan(fieldPointers(elem, cols)...)
}

// fieldPointers maps result columns to struct field pointers via `db:` tags.
// Unknown columns are scanned into a throwaway value.
func fieldPointers(elem reflect.Value, cols []string) []interface{} {
	byTag := map[string]interface{}{}
	dbColumns(elem, func(col string, f reflect.Value) {
		byTag[col] = f.Addr().Interface()
	})
	ptrs := make([]interface{}, len(cols))
	for i, c := range cols {
		if p, ok := byTag[c]; ok {
			ptrs[i] = p
		} else {
			var discard interface{}
			ptrs[i] = &discard
		}
	}
	return ptrs
}
