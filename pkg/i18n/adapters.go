package i18n

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"maps"
	"path"
	"strings"
)

// TranslationAdapter loads dictionaries keyed by language.
type TranslationAdapter interface {
	Load(ctx context.Context) (map[string]map[string]any, error)
}

// MapAdapter serves dictionaries from memory.
type MapAdapter struct {
	Data map[string]map[string]any
}

func (a *MapAdapter) Load(_ context.Context) (map[string]map[string]any, error) {
	if a.Data == nil {
		return make(map[string]map[string]any), nil
	}
	return a.Data, nil
}

// EmbeddedFsAdapter reads every file in dir that parser supports, usually
// from an embed.FS. Files are merged; a later file wins per top level key.
type EmbeddedFsAdapter struct {
	parser Parser
	fs     fs.FS
	dir    string
}

// NewEmbeddedFsAdapter returns nil if parser or fsys is nil or dir is empty.
func NewEmbeddedFsAdapter(parser Parser, fsys fs.FS, dir string) *EmbeddedFsAdapter {
	if parser == nil || fsys == nil || dir == "" {
		return nil
	}
	return &EmbeddedFsAdapter{parser: parser, fs: fsys, dir: dir}
}

// Load fails on the first unreadable or malformed file.
func (a *EmbeddedFsAdapter) Load(ctx context.Context) (map[string]map[string]any, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.Join(ErrLoadingTranslationsCancelled, err)
	}

	entries, err := fs.ReadDir(a.fs, a.dir)
	if err != nil {
		return nil, errors.Join(ErrFailedToReadEmbeddedDirectory, err)
	}

	all := make(map[string]map[string]any)
	for _, entry := range entries {
		ext := path.Ext(entry.Name())
		if entry.IsDir() || ext == "" || !a.parser.SupportsFileExtension(ext) {
			continue
		}
		if err := a.processFile(ctx, path.Join(a.dir, entry.Name()), all); err != nil {
			return nil, err
		}
	}

	if len(all) == 0 {
		return nil, fmt.Errorf("%w in %q", ErrNoTranslations, a.dir)
	}
	return all, nil
}

func (a *EmbeddedFsAdapter) processFile(ctx context.Context, name string, all map[string]map[string]any) error {
	content, err := fs.ReadFile(a.fs, name)
	if err != nil {
		return errors.Join(ErrFailedToReadEmbeddedFile, err)
	}
	if len(strings.TrimSpace(string(content))) == 0 {
		return fmt.Errorf("%w: %s is empty", ErrFailedToParseEmbeddedFile, name)
	}

	parsed, err := a.parser.Parse(ctx, string(content))
	if err != nil {
		return errors.Join(ErrFailedToParseEmbeddedFile, fmt.Errorf("%s: %w", name, err))
	}
	for lang, messages := range parsed {
		lang = strings.ToLower(lang)
		if all[lang] == nil {
			all[lang] = make(map[string]any)
		}
		maps.Copy(all[lang], messages)
	}
	return nil
}
