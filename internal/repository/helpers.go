package repository

import (
	"database/sql"
	"errors"

	"github.com/lib/pq"
)

const pqUniqueViolation = "23505"

// HandleNotFound turns sql.ErrNoRows into (nil, nil) for Find* lookups:
//
//	var asset model.Asset
//	err := r.db.GetContext(ctx, &asset, query, packageID, externalID)
//	return HandleNotFound(&asset, err)
func HandleNotFound[T any](row *T, err error) (*T, error) {
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, nil
	case err != nil:
		return nil, err
	default:
		return row, nil
	}
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation
}
