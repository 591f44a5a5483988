package server

import (
	"bytes"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"path"
	"strings"

	"github.com/Adenrele/Web-Portfolio/internal/content"
	"github.com/Adenrele/Web-Portfolio/internal/forms"
)

// Flash categories
const (
	flashMessage = "message"
	flashSuccess = "success"
	flashDanger  = "danger"
)

type flash struct {
	Category string
	Message  string
}

// pageData is what every page template receives
type pageData struct {
	Title     string
	Active    string
	Flashes   []flash
	Form      *forms.ContactForm
	CSRFToken string
	Success   bool
	Projects  []content.Project
	Posts     []content.Post
	Post      *content.Post
	CV        template.HTML
	Year      int
}

// pageSet holds one parsed template per page, each a clone of the layout
type pageSet struct {
	pages map[string]*template.Template
}

func loadPages() (*pageSet, error) {
	layout, err := template.ParseFS(templateFS, "templates/layout.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse layout: %w", err)
	}

	files, err := fs.Glob(templateFS, "templates/*.html")
	if err != nil {
		return nil, err
	}

	set := &pageSet{pages: make(map[string]*template.Template)}
	for _, file := range files {
		name := strings.TrimSuffix(path.Base(file), ".html")
		if name == "layout" {
			continue
		}

		clone, err := layout.Clone()
		if err != nil {
			return nil, err
		}
		if _, err := clone.ParseFS(templateFS, file); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", file, err)
		}
		set.pages[name] = clone
	}
	return set, nil
}

// render executes a page into a buffer first so that a template error never
// leaves a half-written response
func (s *HTTPServer) render(w http.ResponseWriter, status int, page string, data *pageData) {
	tmpl, ok := s.pages.pages[page]
	if !ok {
		s.logger.Error("Unknown page template %q", page)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	data.Year = s.now().Year()

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "layout", data); err != nil {
		s.logger.Error("Failed to render %s: %v", page, err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	w.Write(buf.Bytes())
}

func (s *HTTPServer) handleHome(w http.ResponseWriter, r *http.Request) {
	posts := s.deps.Content.Posts()
	if len(posts) > 3 {
		posts = posts[:3]
	}
	s.render(w, http.StatusOK, "home", &pageData{Title: "Home", Active: "home", Posts: posts})
}

func (s *HTTPServer) handleCV(w http.ResponseWriter, r *http.Request) {
	s.render(w, http.StatusOK, "cv", &pageData{Title: "CV", Active: "cv", CV: s.deps.Content.CV})
}

func (s *HTTPServer) handleProjects(w http.ResponseWriter, r *http.Request) {
	s.render(w, http.StatusOK, "projects", &pageData{
		Title:    "Projects",
		Active:   "projects",
		Projects: s.deps.Content.Projects,
	})
}

func (s *HTTPServer) handleBlogs(w http.ResponseWriter, r *http.Request) {
	s.render(w, http.StatusOK, "blogs", &pageData{Title: "Blogs", Active: "blogs", Posts: s.deps.Content.Posts()})
}

func (s *HTTPServer) handlePost(w http.ResponseWriter, r *http.Request) {
	post, err := s.deps.Content.Post(r.PathValue("slug"))
	if errors.Is(err, content.ErrPostNotFound) {
		s.handleNotFound(w, r)
		return
	}
	if err != nil {
		s.logger.Error("Failed to load post: %v", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	s.render(w, http.StatusOK, "post", &pageData{Title: post.Title, Active: "blogs", Post: post})
}

func (s *HTTPServer) handleHidden(w http.ResponseWriter, r *http.Request) {
	s.render(w, http.StatusOK, "hidden", &pageData{Title: "Hidden"})
}

func (s *HTTPServer) handleNotFound(w http.ResponseWriter, r *http.Request) {
	s.render(w, http.StatusNotFound, "notfound", &pageData{Title: "Not Found"})
}
