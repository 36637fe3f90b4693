// Copyright 2023 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

package sqlquery

import (
	"container/list"
	"context"
	"database/sql"
	"fmt"
	"sync"
)

// defaultCacheSize is the number of prepared statements an SQLExecutor keeps
// unless told otherwise.
const defaultCacheSize = 256

// prepareSubstrate is an object that statements can be prepared on, e.g. a
// sql.DB or sql.Conn.
type prepareSubstrate interface {
	PrepareContext(context.Context, string) (*sql.Stmt, error)
}

// cachedStmt is a prepared statement and the number of queries using it.
type cachedStmt struct {
	text    string
	stmt    *sql.Stmt
	users   int
	evicted bool
	elem    *list.Element
}

// statementCache holds the driver prepared statements of an SQLExecutor,
// indexed by SQL text. Statements built with the same shape render the same
// text, so they share a prepared statement whatever their parameters.
//
// At most size statements are kept. The least recently used statement is
// evicted first; a statement still in use when evicted is closed once its
// last user releases it.
//
// The mutex must be locked when accessing stmts and lru.
type statementCache struct {
	size   int
	stmts  map[string]*cachedStmt
	lru    list.List
	closed bool
	mutex  sync.Mutex
}

func newStatementCache(size int) *statementCache {
	return &statementCache{size: size, stmts: map[string]*cachedStmt{}}
}

// prepare returns the prepared statement for text, preparing it on ps if it
// is not cached yet. The release function must be called once the statement
// is no longer used.
func (sc *statementCache) prepare(ctx context.Context, ps prepareSubstrate, text string) (*sql.Stmt, func(), error) {
	sc.mutex.Lock()
	if sc.closed {
		sc.mutex.Unlock()
		return nil, nil, fmt.Errorf("cannot prepare statement: executor closed")
	}
	if cs, ok := sc.stmts[text]; ok {
		defer sc.mutex.Unlock()
		stmt, release := sc.acquireLocked(cs)
		return stmt, release, nil
	}
	sc.mutex.Unlock()

	stmt, err := ps.PrepareContext(ctx, text)
	if err != nil {
		return nil, nil, err
	}
	sc.mutex.Lock()
	defer sc.mutex.Unlock()
	if sc.closed {
		stmt.Close()
		return nil, nil, fmt.Errorf("cannot prepare statement: executor closed")
	}
	// Check if a statement has been inserted by someone else since we last
	// checked.
	if alt, ok := sc.stmts[text]; ok {
		stmt.Close()
		stmt, release := sc.acquireLocked(alt)
		return stmt, release, nil
	}
	cs := &cachedStmt{text: text, stmt: stmt}
	cs.elem = sc.lru.PushFront(cs)
	sc.stmts[text] = cs
	_, release := sc.acquireLocked(cs)
	sc.evictLocked(sc.size)
	return stmt, release, nil
}

// acquireLocked marks cs as used and most recently used.
func (sc *statementCache) acquireLocked(cs *cachedStmt) (*sql.Stmt, func()) {
	cs.users++
	sc.lru.MoveToFront(cs.elem)
	var once sync.Once
	return cs.stmt, func() { once.Do(func() { sc.release(cs) }) }
}

func (sc *statementCache) release(cs *cachedStmt) {
	sc.mutex.Lock()
	defer sc.mutex.Unlock()
	cs.users--
	if cs.evicted && cs.users == 0 {
		cs.stmt.Close()
	}
}

// evictLocked drops the least recently used statements until at most keep
// remain. It returns the first error met closing them.
func (sc *statementCache) evictLocked(keep int) error {
	var closeErr error
	for sc.lru.Len() > keep {
		cs := sc.lru.Remove(sc.lru.Back()).(*cachedStmt)
		delete(sc.stmts, cs.text)
		cs.evicted = true
		if cs.users > 0 {
			continue
		}
		if err := cs.stmt.Close(); err != nil && closeErr == nil {
			closeErr = err
		}
	}
	return closeErr
}

// len returns the number of cached statements.
func (sc *statementCache) len() int {
	sc.mutex.Lock()
	defer sc.mutex.Unlock()
	return len(sc.stmts)
}

// close closes every cached statement and empties the cache.
func (sc *statementCache) close() error {
	sc.mutex.Lock()
	defer sc.mutex.Unlock()
	sc.closed = true
	return sc.evictLocked(0)
}
