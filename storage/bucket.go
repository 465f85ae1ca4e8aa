// Package storage 提供菜品图片的对象存储桶。
package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"shrimpy/config"

	"github.com/gabriel-vasile/mimetype"
	"github.com/spf13/afero"
)

var (
	// ErrNotImage 上传内容不是图片
	ErrNotImage = errors.New("uploaded file is not an image")
	// ErrTooLarge 超出大小限制
	ErrTooLarge = errors.New("uploaded file is too large")
)

// Bucket 对象存储桶
type Bucket interface {
	// Upload 写入对象，已存在时报错
	Upload(ctx context.Context, name string, r io.Reader, contentType string) error
	// PublicURL 对象的公开访问地址
	PublicURL(name string) string
}

// FSBucket 基于 afero 文件系统的存储桶
type FSBucket struct {
	fs      afero.Fs
	name    string
	baseURL string
}

// NewFSBucket 在 fs 上创建桶，对象位于 /<bucket>/ 下
func NewFSBucket(fs afero.Fs, bucket, publicBaseURL string) (*FSBucket, error) {
	if err := fs.MkdirAll(string(filepath.Separator)+bucket, 0o755); err != nil {
		return nil, fmt.Errorf("创建存储目录失败: %w", err)
	}
	return &FSBucket{
		fs:      fs,
		name:    bucket,
		baseURL: strings.TrimRight(publicBaseURL, "/"),
	}, nil
}

// NewFromConfig 根据配置在本地磁盘创建桶
func NewFromConfig(cfg config.StorageConfig) (*FSBucket, afero.Fs, error) {
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, nil, fmt.Errorf("创建存储目录失败: %w", err)
	}
	root := afero.NewBasePathFs(afero.NewOsFs(), cfg.Dir)
	b, err := NewFSBucket(root, cfg.Bucket, cfg.PublicBaseURL)
	if err != nil {
		return nil, nil, err
	}
	return b, root, nil
}

// Name 桶名
func (b *FSBucket) Name() string {
	return b.name
}

// Upload 写入对象
func (b *FSBucket) Upload(ctx context.Context, name string, r io.Reader, contentType string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p := b.objectPath(name)
	if ok, _ := afero.Exists(b.fs, p); ok {
		return fmt.Errorf("对象已存在: %s", name)
	}
	f, err := b.fs.OpenFile(p, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("创建对象失败: %w", err)
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		_ = b.fs.Remove(p)
		return fmt.Errorf("写入对象失败: %w", err)
	}
	return f.Close()
}

// PublicURL 如 /uploads/dish-photos/1717171717171.jpg
func (b *FSBucket) PublicURL(name string) string {
	return b.baseURL + "/" + path.Join(b.name, name)
}

// Open 读取对象
func (b *FSBucket) Open(name string) (afero.File, error) {
	return b.fs.Open(b.objectPath(name))
}

func (b *FSBucket) objectPath(name string) string {
	return filepath.Join(string(filepath.Separator), b.name, filepath.Base(name))
}

// ObjectName 生成对象名：毫秒时间戳 + 扩展名。
// 原文件扩展名与探测到的内容类型不一致时，改用内容类型对应的扩展名。
func ObjectName(now time.Time, filename, contentType string) string {
	ms := strconv.FormatInt(now.UnixMilli(), 10)
	ext := strings.ToLower(filepath.Ext(filename))
	if !extensionMatches(ext, contentType) {
		ext = ""
		if mt := mimetype.Lookup(contentType); mt != nil {
			ext = mt.Extension()
		}
	}
	return ms + ext
}

func extensionMatches(ext, contentType string) bool {
	if ext == "" {
		return false
	}
	byExt, _, err := mime.ParseMediaType(mime.TypeByExtension(ext))
	if err != nil {
		return false
	}
	ct, _, err := mime.ParseMediaType(contentType)
	return err == nil && byExt == ct
}

// SniffImage 读取内容头部判断是否为图片，返回可继续完整读取的 reader
func SniffImage(r io.Reader, maxBytes int64) (io.Reader, string, error) {
	head := make([]byte, 3072)
	n, err := io.ReadFull(r, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return nil, "", err
	}
	head = head[:n]

	mt := mimetype.Detect(head)
	// SVG 可携带脚本，不作为菜品图片
	if !strings.HasPrefix(mt.String(), "image/") || mt.Is("image/svg+xml") {
		return nil, mt.String(), ErrNotImage
	}

	full := io.MultiReader(bytes.NewReader(head), r)
	if maxBytes > 0 {
		full = &limitedReader{r: full, remaining: maxBytes}
	}
	return full, mt.String(), nil
}

// limitedReader 超出限制时返回 ErrTooLarge，而不是静默截断
type limitedReader struct {
	r         io.Reader
	remaining int64
}

func (l *limitedReader) Read(p []byte) (int, error) {
	n, err := l.r.Read(p)
	l.remaining -= int64(n)
	if l.remaining < 0 {
		return n, ErrTooLarge
	}
	return n, err
}

// Handler 以只读方式对外提供桶内对象，禁止浏览器猜测内容类型
func Handler(fs afero.Fs) http.Handler {
	files := http.FileServer(afero.NewHttpFs(afero.NewReadOnlyFs(fs)).Dir("/"))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		files.ServeHTTP(w, r)
	})
}
