package store

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/go-errors/errors"
	"github.com/spf13/afero"
)

var ErrIO = errors.New("artifact i/o failure")

// Store 目标文件的读写
type Store interface {
	Read(path string) (string, error)
	Write(path, content string) error
}

// Locker 按路径串行化读改写
type Locker interface {
	Lock(path string) (unlock func())
}

// FileStore 基于 afero 的文件存储
type FileStore struct {
	fs    afero.Fs
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewFileStore 创建存储，root 非空时所有路径都相对于 root
func NewFileStore(fs afero.Fs, root string) *FileStore {
	if root != "" && filepath.Clean(root) != "." {
		fs = afero.NewBasePathFs(fs, root)
	}
	return &FileStore{fs: fs, locks: make(map[string]*sync.Mutex)}
}

// NewOsStore 基于本地文件系统创建存储
func NewOsStore(root string) *FileStore {
	return NewFileStore(afero.NewOsFs(), root)
}

// Fs 底层文件系统
func (s *FileStore) Fs() afero.Fs {
	return s.fs
}

// Lock 获取路径锁
func (s *FileStore) Lock(path string) func() {
	key := filepath.Clean(path)
	s.mu.Lock()
	l, ok := s.locks[key]
	if !ok {
		l = &sync.Mutex{}
		s.locks[key] = l
	}
	s.mu.Unlock()

	l.Lock()
	return l.Unlock
}

// Read 读取文件内容
func (s *FileStore) Read(path string) (string, error) {
	data, err := afero.ReadFile(s.fs, path)
	if err != nil {
		return "", ioError("read", path, err)
	}
	return string(data), nil
}

// Write 原子写入：先写同目录临时文件，再 rename 覆盖
func (s *FileStore) Write(path, content string) error {
	perm := os.FileMode(0644)
	if info, err := s.fs.Stat(path); err == nil {
		perm = info.Mode().Perm()
	}

	dir := filepath.Dir(path)
	tmp, err := afero.TempFile(s.fs, dir, "."+filepath.Base(path)+".patch-*")
	if err != nil {
		return ioError("create temp", path, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.WriteString(content); err != nil {
		_ = tmp.Close()
		_ = s.fs.Remove(tmpName)
		return ioError("write", path, err)
	}
	if err := tmp.Close(); err != nil {
		_ = s.fs.Remove(tmpName)
		return ioError("close", path, err)
	}
	if err := s.fs.Chmod(tmpName, perm); err != nil {
		_ = s.fs.Remove(tmpName)
		return ioError("chmod", path, err)
	}
	if err := s.fs.Rename(tmpName, path); err != nil {
		_ = s.fs.Remove(tmpName)
		return ioError("rename", path, err)
	}
	return nil
}

func ioError(op, path string, err error) error {
	return errors.Errorf("%w: %s %s: %w", ErrIO, op, path, err)
}
