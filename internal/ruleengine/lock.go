package ruleengine

import (
	"context"
	"sync"

	"golang.org/x/sync/semaphore"
)

// maxReaders は1ユーザーに対して同時に許可する読み取り数。
// 書き込みはこの重みをすべて取得するため、読み取りとも他の書き込みとも排他になる。
const maxReaders = 1 << 16

// userLocks はユーザー単位の読み書きロック。
// 使われていないユーザーのエントリは参照カウントが0になった時点で削除する。
type userLocks struct {
	mu    sync.Mutex
	locks map[string]*userLock
}

type userLock struct {
	sem  *semaphore.Weighted
	refs int
}

func newUserLocks() *userLocks {
	return &userLocks{locks: make(map[string]*userLock)}
}

// Lock は書き込みロックを取得する。コンテキストがキャンセルされると待機をやめる。
func (l *userLocks) Lock(ctx context.Context, userID string) (func(), error) {
	return l.lock(ctx, userID, maxReaders)
}

// RLock は読み取りロックを取得する。
func (l *userLocks) RLock(ctx context.Context, userID string) (func(), error) {
	return l.lock(ctx, userID, 1)
}

func (l *userLocks) lock(ctx context.Context, userID string, weight int64) (func(), error) {
	ul := l.ref(userID)
	if err := ul.sem.Acquire(ctx, weight); err != nil {
		l.unref(userID, ul)
		return nil, err
	}
	return func() {
		ul.sem.Release(weight)
		l.unref(userID, ul)
	}, nil
}

func (l *userLocks) ref(userID string) *userLock {
	l.mu.Lock()
	defer l.mu.Unlock()

	ul, ok := l.locks[userID]
	if !ok {
		ul = &userLock{sem: semaphore.NewWeighted(maxReaders)}
		l.locks[userID] = ul
	}
	ul.refs++
	return ul
}

func (l *userLocks) unref(userID string, ul *userLock) {
	l.mu.Lock()
	defer l.mu.Unlock()

	ul.refs--
	if ul.refs == 0 {
		delete(l.locks, userID)
	}
}

// size は保持しているユーザーエントリ数を返す。
func (l *userLocks) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
