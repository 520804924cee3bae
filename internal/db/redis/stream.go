package redis

import (
	"context"
	"sort"

	"github.com/strukt-cms/strukt/internal/db"
)

// XAdd appends a record to a stream with an auto-generated id.
func (s *Store) XAdd(ctx context.Context, stream string, fields map[string]string) (string, error) {
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)

	args := make([]string, 0, 1+2*len(fields))
	args = append(args, "*")
	for _, name := range names {
		args = append(args, name, fields[name])
	}

	cmd := s.b().Arbitrary("XADD").Keys(stream).Args(args...).Build()
	id, err := s.do(ctx, cmd).ToString()
	if err != nil {
		return "", &db.Error{Op: db.OpXAdd, Err: err}
	}
	return id, nil
}
