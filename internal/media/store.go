// Package media stores uploaded images on the local filesystem.
package media

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"techstore/internal/apperr"
)

// Collection is a top-level media directory.
type Collection string

const (
	Library  Collection = "library"
	Banners  Collection = "banners"
	Products Collection = "products"
)

const metaFile = "_meta.json"

var (
	ErrUnsupportedType = apperr.Validation("only JPG, PNG, WEBP or GIF images are allowed")
	ErrInvalidFilename = apperr.Validation("invalid file name")
	ErrFileNotFound    = apperr.NotFound("file not found")
)

var (
	// ImageTypes are accepted for the library and banners.
	ImageTypes = map[string]bool{"image/jpeg": true, "image/png": true, "image/webp": true, "image/gif": true}
	// ProductImageTypes are accepted for product gallery uploads.
	ProductImageTypes = map[string]bool{"image/jpeg": true, "image/png": true, "image/webp": true}

	imageExtensions = map[string]bool{".png": true, ".jpg": true, ".jpeg": true, ".webp": true, ".gif": true}
)

// Asset is a stored file.
type Asset struct {
	Filename string    `json:"filename"`
	URL      string    `json:"url"`
	Size     int64     `json:"size"`
	ModTime  time.Time `json:"-"`
}

// Banner is a storefront banner with its link metadata.
type Banner struct {
	Asset
	Link string `json:"link"`
	Alt  string `json:"alt"`
}

type bannerMeta struct {
	Link string `json:"link"`
	Alt  string `json:"alt"`
}

// Store keeps each collection in its own directory under root.
type Store struct {
	root    string
	baseURL string

	// guards read-modify-write of the banner metadata file
	metaMu sync.Mutex
}

func NewStore(root, baseURL string) *Store {
	return &Store{root: root, baseURL: strings.TrimRight(baseURL, "/")}
}

// Root is the directory served under /static.
func (s *Store) Root() string {
	return s.root
}

// URL is the public address of a stored file.
func (s *Store) URL(c Collection, filename string) string {
	return s.baseURL + "/static/" + path.Join(string(c), filename)
}

func (s *Store) dir(c Collection) (string, error) {
	dir := filepath.Join(s.root, string(c))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create media directory: %w", err)
	}
	return dir, nil
}

// FileServer serves stored files at /<collection>/<name>. Banner metadata
// and directory listings are not exposed.
func (s *Store) FileServer() http.Handler {
	files := http.FileServer(http.Dir(s.root))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/") || path.Base(r.URL.Path) == metaFile {
			http.NotFound(w, r)
			return
		}
		files.ServeHTTP(w, r)
	})
}

// SanitizeFilename keeps only the base name and replaces spaces.
func SanitizeFilename(name string) (string, error) {
	name = strings.ReplaceAll(name, "\\", "/")
	name = path.Base(name)
	name = strings.ReplaceAll(name, " ", "_")
	if name == "" || name == "." || name == "/" || name == ".." || name == metaFile || strings.HasPrefix(name, ".") {
		return "", ErrInvalidFilename
	}
	return name, nil
}

// checkName rejects names that would escape the collection directory.
func checkName(name string) error {
	if name == "" || name == metaFile || strings.Contains(name, "..") || strings.ContainsAny(name, "/\\") {
		return ErrInvalidFilename
	}
	return nil
}

// Save writes r under a unique name derived from filename. Existing files are
// never overwritten; a _N suffix is added instead.
func (s *Store) Save(c Collection, filename, contentType string, allowed map[string]bool, r io.Reader) (*Asset, error) {
	if !allowed[contentType] {
		return nil, ErrUnsupportedType
	}
	name, err := SanitizeFilename(filename)
	if err != nil {
		return nil, err
	}
	dir, err := s.dir(c)
	if err != nil {
		return nil, err
	}

	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)

	var f *os.File
	for counter := 0; ; counter++ {
		candidate := name
		if counter > 0 {
			candidate = stem + "_" + strconv.Itoa(counter) + ext
		}
		f, err = os.OpenFile(filepath.Join(dir, candidate), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if err == nil {
			name = candidate
			break
		}
		if !errors.Is(err, fs.ErrExist) {
			return nil, fmt.Errorf("failed to create media file: %w", err)
		}
	}

	size, copyErr := io.Copy(f, r)
	closeErr := f.Close()
	if copyErr != nil || closeErr != nil {
		_ = os.Remove(f.Name())
		return nil, fmt.Errorf("failed to write media file: %w", errors.Join(copyErr, closeErr))
	}

	return &Asset{Filename: name, URL: s.URL(c, name), Size: size, ModTime: time.Now()}, nil
}

// List returns the image files of a collection, newest first.
func (s *Store) List(c Collection) ([]Asset, error) {
	dir, err := s.dir(c)
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read media directory: %w", err)
	}

	assets := []Asset{}
	for _, entry := range entries {
		if entry.IsDir() || !imageExtensions[strings.ToLower(filepath.Ext(entry.Name()))] {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		assets = append(assets, Asset{
			Filename: entry.Name(),
			URL:      s.URL(c, entry.Name()),
			Size:     info.Size(),
			ModTime:  info.ModTime(),
		})
	}

	sort.SliceStable(assets, func(i, j int) bool {
		return assets[i].ModTime.After(assets[j].ModTime)
	})
	return assets, nil
}

// Delete removes a file from a collection, and its banner metadata if any.
func (s *Store) Delete(c Collection, filename string) error {
	if err := checkName(filename); err != nil {
		return err
	}
	dir, err := s.dir(c)
	if err != nil {
		return err
	}

	if err := os.Remove(filepath.Join(dir, filename)); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return ErrFileNotFound
		}
		return fmt.Errorf("failed to delete media file: %w", err)
	}

	if c == Banners {
		return s.updateMeta(func(meta map[string]bannerMeta) { delete(meta, filename) })
	}
	return nil
}

// SaveBanner stores a banner image and its link metadata.
func (s *Store) SaveBanner(filename, contentType string, r io.Reader, link, alt string) (*Banner, error) {
	asset, err := s.Save(Banners, filename, contentType, ImageTypes, r)
	if err != nil {
		return nil, err
	}
	if alt == "" {
		alt = asset.Filename
	}
	meta := bannerMeta{Link: link, Alt: alt}
	if err := s.updateMeta(func(m map[string]bannerMeta) { m[asset.Filename] = meta }); err != nil {
		return nil, err
	}
	return &Banner{Asset: *asset, Link: meta.Link, Alt: meta.Alt}, nil
}

// UpdateBanner replaces the link metadata of an existing banner.
func (s *Store) UpdateBanner(filename, link, alt string) (*Banner, error) {
	if err := checkName(filename); err != nil {
		return nil, err
	}
	dir, err := s.dir(Banners)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(filepath.Join(dir, filename))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrFileNotFound
		}
		return nil, fmt.Errorf("failed to stat banner: %w", err)
	}

	if alt == "" {
		alt = filename
	}
	meta := bannerMeta{Link: link, Alt: alt}
	if err := s.updateMeta(func(m map[string]bannerMeta) { m[filename] = meta }); err != nil {
		return nil, err
	}

	return &Banner{
		Asset: Asset{Filename: filename, URL: s.URL(Banners, filename), Size: info.Size(), ModTime: info.ModTime()},
		Link:  meta.Link,
		Alt:   meta.Alt,
	}, nil
}

// ListBanners returns banners sorted by file name with their metadata.
func (s *Store) ListBanners() ([]Banner, error) {
	assets, err := s.List(Banners)
	if err != nil {
		return nil, err
	}

	s.metaMu.Lock()
	meta, err := s.readMeta()
	s.metaMu.Unlock()
	if err != nil {
		return nil, err
	}

	sort.Slice(assets, func(i, j int) bool { return assets[i].Filename < assets[j].Filename })

	banners := make([]Banner, 0, len(assets))
	for _, a := range assets {
		m, ok := meta[a.Filename]
		if !ok || m.Alt == "" {
			m.Alt = a.Filename
		}
		banners = append(banners, Banner{Asset: a, Link: m.Link, Alt: m.Alt})
	}
	return banners, nil
}

func (s *Store) metaPath() string {
	return filepath.Join(s.root, string(Banners), metaFile)
}

// readMeta treats a missing or corrupt metadata file as empty.
func (s *Store) readMeta() (map[string]bannerMeta, error) {
	meta := map[string]bannerMeta{}
	raw, err := os.ReadFile(s.metaPath())
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return meta, nil
		}
		return nil, fmt.Errorf("failed to read banner metadata: %w", err)
	}
	if err := json.Unmarshal(raw, &meta); err != nil {
		return map[string]bannerMeta{}, nil
	}
	return meta, nil
}

func (s *Store) updateMeta(fn func(map[string]bannerMeta)) error {
	s.metaMu.Lock()
	defer s.metaMu.Unlock()

	meta, err := s.readMeta()
	if err != nil {
		return err
	}
	fn(meta)

	raw, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode banner metadata: %w", err)
	}
	if _, err := s.dir(Banners); err != nil {
		return err
	}
	if err := os.WriteFile(s.metaPath(), raw, 0o644); err != nil {
		return fmt.Errorf("failed to write banner metadata: %w", err)
	}
	return nil
}
