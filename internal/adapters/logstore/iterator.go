package logstore

import (
	"context"
	"errors"

	"go.trai.ch/ims/internal/core/domain"
	"go.trai.ch/ims/internal/core/ports"
	"go.trai.ch/zerr"
)

// Iterate returns the live records under prefix in key order.
//
// Keys are read a page at a time and no cursor stays open between pages,
// so an iterator can be dropped at any point.
func (s *Store) Iterate(_ context.Context, prefix string) ports.Iterator {
	return &iterator{
		store: s,
		lower: prefix + "/",
		upper: prefix + "0", // '0' sorts right after '/'
	}
}

type iterator struct {
	store *Store
	lower string
	upper string
	page  []*domain.Node
	done  bool
}

func (it *iterator) Next(ctx context.Context) (*domain.Node, error) {
	if len(it.page) == 0 && !it.done {
		if err := it.fetch(ctx); err != nil {
			return nil, err
		}
	}
	if len(it.page) == 0 {
		return nil, nil
	}

	node := it.page[0]
	it.page = it.page[1:]
	return node, nil
}

func (it *iterator) fetch(ctx context.Context) error {
	rows, err := it.store.db.QueryContext(ctx, `
		SELECT h.key, e.position, e.value
		FROM heads h JOIN entries e ON e.position = h.position
		WHERE h.key >= ? AND h.key < ? AND h.tombstone = 0
		ORDER BY h.key
		LIMIT ?`, it.lower, it.upper, it.store.pageSize)
	if err != nil {
		return zerr.With(errors.Join(domain.ErrStoreReadFailed, err), "prefix", it.lower)
	}
	defer func() {
		_ = rows.Close()
	}()

	for rows.Next() {
		var (
			key      string
			position int64
			value    []byte
		)
		if err := rows.Scan(&key, &position, &value); err != nil {
			return zerr.With(errors.Join(domain.ErrStoreReadFailed, err), "prefix", it.lower)
		}

		node, err := decodeNode(key, position, value)
		if err != nil {
			return err
		}
		it.page = append(it.page, node)
	}
	if err := rows.Err(); err != nil {
		return zerr.With(errors.Join(domain.ErrStoreReadFailed, err), "prefix", it.lower)
	}

	if len(it.page) < it.store.pageSize {
		it.done = true
	}
	if n := len(it.page); n > 0 {
		it.lower = it.page[n-1].Key + "\x00"
	}
	return nil
}
