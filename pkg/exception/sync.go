package exception

import "github.com/yanun0323/errors"

var (
	ErrCacheClosed        = errors.New("sync cache closed")
	ErrConflictUnresolved = errors.New("unresolved conflict blocks the key")
	ErrEmptyPatch         = errors.New("empty optimistic patch")
)
