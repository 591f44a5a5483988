// Package content loads the portfolio's projects, CV and blog posts.
package content

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"os"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

//go:embed defaults
var defaults embed.FS

// ErrPostNotFound is returned for unknown or draft slugs
var ErrPostNotFound = errors.New("post not found")

const dateLayout = "2006-01-02"

// Project is one entry on the projects page
type Project struct {
	Title   string   `yaml:"title"`
	Summary string   `yaml:"summary"`
	URL     string   `yaml:"url"`
	Tags    []string `yaml:"tags"`
}

// Post is a rendered blog post
type Post struct {
	Slug    string
	Title   string
	Date    time.Time
	Summary string
	Draft   bool
	HTML    template.HTML
}

type frontMatter struct {
	Title   string `yaml:"title"`
	Date    string `yaml:"date"`
	Summary string `yaml:"summary"`
	Draft   bool   `yaml:"draft"`
}

// Library holds everything the pages render
type Library struct {
	Projects []Project
	CV       template.HTML

	posts  []Post
	bySlug map[string]int
}

// Load reads content from dir. An empty dir uses the built-in content.
func Load(dir string) (*Library, error) {
	if dir == "" {
		sub, err := fs.Sub(defaults, "defaults")
		if err != nil {
			return nil, err
		}
		return LoadFS(sub)
	}

	if _, err := os.Stat(dir); err != nil {
		return nil, fmt.Errorf("content folder: %w", err)
	}
	return LoadFS(os.DirFS(dir))
}

// LoadFS reads projects.yaml, cv.md and blogs/*.md from fsys. Each of them
// is optional.
func LoadFS(fsys fs.FS) (*Library, error) {
	md := goldmark.New(
		goldmark.WithExtensions(extension.GFM),
		goldmark.WithParserOptions(parser.WithAutoHeadingID()),
	)

	lib := &Library{bySlug: make(map[string]int)}

	if data, err := fs.ReadFile(fsys, "projects.yaml"); err == nil {
		if err := yaml.Unmarshal(data, &lib.Projects); err != nil {
			return nil, fmt.Errorf("projects.yaml: %w", err)
		}
	} else if !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("projects.yaml: %w", err)
	}

	if data, err := fs.ReadFile(fsys, "cv.md"); err == nil {
		html, err := render(md, data)
		if err != nil {
			return nil, fmt.Errorf("cv.md: %w", err)
		}
		lib.CV = html
	} else if !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("cv.md: %w", err)
	}

	files, err := fs.Glob(fsys, "blogs/*.md")
	if err != nil {
		return nil, err
	}
	for _, name := range files {
		data, err := fs.ReadFile(fsys, name)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}

		post, err := parsePost(md, strings.TrimSuffix(path.Base(name), ".md"), data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		if post.Draft {
			continue
		}
		lib.posts = append(lib.posts, *post)
	}

	sort.SliceStable(lib.posts, func(i, j int) bool {
		if lib.posts[i].Date.Equal(lib.posts[j].Date) {
			return lib.posts[i].Slug < lib.posts[j].Slug
		}
		return lib.posts[i].Date.After(lib.posts[j].Date)
	})
	for i, p := range lib.posts {
		lib.bySlug[p.Slug] = i
	}

	return lib, nil
}

func render(md goldmark.Markdown, src []byte) (template.HTML, error) {
	var buf bytes.Buffer
	if err := md.Convert(src, &buf); err != nil {
		return "", err
	}
	return template.HTML(buf.String()), nil
}

// splitFrontMatter separates a leading "---" YAML block from the body
func splitFrontMatter(data []byte) (meta, body []byte) {
	text := strings.ReplaceAll(string(data), "\r\n", "\n")
	if !strings.HasPrefix(text, "---\n") {
		return nil, []byte(text)
	}

	rest := text[len("---\n"):]
	end := strings.Index(rest, "\n---")
	if end < 0 {
		return nil, []byte(text)
	}

	body = []byte(strings.TrimPrefix(rest[end+len("\n---"):], "\n"))
	return []byte(rest[:end]), body
}

func parsePost(md goldmark.Markdown, slug string, data []byte) (*Post, error) {
	meta, body := splitFrontMatter(data)

	var fm frontMatter
	if len(meta) > 0 {
		if err := yaml.Unmarshal(meta, &fm); err != nil {
			return nil, fmt.Errorf("front matter: %w", err)
		}
	}

	post := &Post{
		Slug:    slug,
		Title:   fm.Title,
		Summary: fm.Summary,
		Draft:   fm.Draft,
	}
	if post.Title == "" {
		post.Title = TitleFromSlug(slug)
	}
	if fm.Date != "" {
		date, err := time.Parse(dateLayout, fm.Date)
		if err != nil {
			return nil, fmt.Errorf("invalid date %q: %w", fm.Date, err)
		}
		post.Date = date
	}

	html, err := render(md, body)
	if err != nil {
		return nil, err
	}
	post.HTML = html
	return post, nil
}

// TitleFromSlug turns "my-first-post" into "My First Post"
func TitleFromSlug(slug string) string {
	words := strings.NewReplacer("-", " ", "_", " ").Replace(slug)
	return cases.Title(language.English).String(strings.TrimSpace(words))
}

// Posts returns the published posts, newest first
func (l *Library) Posts() []Post {
	return l.posts
}

// Post looks up a published post by slug
func (l *Library) Post(slug string) (*Post, error) {
	i, ok := l.bySlug[slug]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrPostNotFound, slug)
	}
	return &l.posts[i], nil
}
