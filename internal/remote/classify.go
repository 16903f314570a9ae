package remote

import (
	"context"
	"errors"
	"regexp"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"github.com/mesh-intelligence/petcare/pkg/types"
)

var columnPatterns = []*regexp.Regexp{
	regexp.MustCompile(`column "([^"]+)"`),
	regexp.MustCompile(`has no column named (\w+)`),
	regexp.MustCompile(`no such column: (?:\w+\.)?(\w+)`),
}

// classify maps a driver error to a *types.RemoteError.
func classify(collection string, err error) error {
	if err == nil {
		return nil
	}
	var re *types.RemoteError
	if errors.As(err, &re) {
		return err
	}
	newErr := func(code types.RemoteCode) error {
		return &types.RemoteError{Code: code, Collection: collection, Err: err}
	}

	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return newErr(types.CodeNotFound)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return newErr(types.CodeUnavailable)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch strings.TrimSpace(pgErr.Code) {
		case "42P01":
			return newErr(types.CodeCollectionMissing) // undefined_table
		case "42703":
			return &types.RemoteError{Code: types.CodeColumnMissing, Collection: collection, Field: columnOf(pgErr.Message), Err: err}
		case "23505":
			return newErr(types.CodeUniqueViolation)
		case "23503":
			return newErr(types.CodeForeignKeyViolation)
		}
		if strings.HasPrefix(pgErr.Code, "08") || strings.HasPrefix(pgErr.Code, "57P") {
			return newErr(types.CodeUnavailable) // connection_exception / operator_intervention
		}
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "no such table"),
		strings.Contains(msg, "relation") && strings.Contains(msg, "does not exist"):
		return newErr(types.CodeCollectionMissing)
	case strings.Contains(msg, "no column named"),
		strings.Contains(msg, "no such column"),
		strings.Contains(msg, "column") && strings.Contains(msg, "does not exist"):
		return &types.RemoteError{Code: types.CodeColumnMissing, Collection: collection, Field: columnOf(err.Error()), Err: err}
	case strings.Contains(msg, "unique constraint failed"), strings.Contains(msg, "duplicate key"):
		return newErr(types.CodeUniqueViolation)
	case strings.Contains(msg, "foreign key constraint"):
		return newErr(types.CodeForeignKeyViolation)
	case strings.Contains(msg, "connection refused"),
		strings.Contains(msg, "database is closed"),
		strings.Contains(msg, "timeout"),
		strings.Contains(msg, "no route to host"):
		return newErr(types.CodeUnavailable)
	}
	return newErr(types.CodeUnknown)
}

func columnOf(msg string) string {
	for _, re := range columnPatterns {
		if m := re.FindStringSubmatch(msg); m != nil {
			return m[1]
		}
	}
	return ""
}
