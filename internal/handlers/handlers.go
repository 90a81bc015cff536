package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"runtime/debug"
	"strings"

	"blog/internal/auth"
	"blog/internal/blog"
	"blog/internal/models"
	"blog/internal/upload"

	"github.com/google/uuid"
)

// maxFormMemory is how much of a multipart body is held in memory before
// spilling to temp files.
const maxFormMemory = 10 << 20

type Handler struct {
	posts    *blog.Service
	sessions *auth.Manager
	uploads  *upload.Saver
}

func New(posts *blog.Service, sessions *auth.Manager, uploads *upload.Saver) *Handler {
	return &Handler{posts: posts, sessions: sessions, uploads: uploads}
}

// envelope is the shape of every JSON response.
type envelope struct {
	Success    bool             `json:"success"`
	Data       any              `json:"data,omitempty"`
	Pagination *blog.Pagination `json:"pagination,omitempty"`
	Message    string           `json:"message,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body envelope) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Printf("write response: %v", err)
	}
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, envelope{Success: status < 400, Message: msg})
}

// fail maps service errors onto HTTP statuses. what names the resource for
// the message, e.g. "post".
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error, what string) {
	var ve *blog.ValidationError
	switch {
	case errors.As(err, &ve):
		writeJSON(w, http.StatusBadRequest, envelope{Message: ve.Error(), Data: map[string][]string{"fields": ve.Fields}})
	case errors.Is(err, blog.ErrNotFound):
		writeMessage(w, http.StatusNotFound, capitalize(what)+" not found")
	case errors.Is(err, blog.ErrForbidden):
		writeMessage(w, http.StatusForbidden, "Not authorized to modify this "+what)
	case errors.Is(err, blog.ErrConflict):
		writeMessage(w, http.StatusConflict, capitalize(what)+" already exists")
	default:
		log.Printf("ERROR %s %s: %v\n%s", r.Method, r.URL.Path, err, debug.Stack())
		writeMessage(w, http.StatusInternalServerError, "Internal Server Error")
	}
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// -------- Auth

func (h *Handler) RequireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, ok := auth.UserFrom(r.Context()); !ok {
			writeMessage(w, http.StatusUnauthorized, "Not authorized, no valid session")
			return
		}
		next.ServeHTTP(w, r)
	}
}

func (h *Handler) RequireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return h.RequireAuth(func(w http.ResponseWriter, r *http.Request) {
		if u, _ := auth.UserFrom(r.Context()); u.Role != models.RoleAdmin {
			log.Printf("AUTH_DENIED | uid=%s path=%s reason=not_admin", u.ID, r.URL.Path)
			writeMessage(w, http.StatusForbidden, "Not authorized as an admin")
			return
		}
		next.ServeHTTP(w, r)
	})
}

type credentials struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type sessionView struct {
	*models.User
	Token string `json:"token"`
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var c credentials
	if err := json.NewDecoder(r.Body).Decode(&c); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	u, err := h.sessions.Register(r.Context(), c.Name, c.Email, c.Password)
	if errors.Is(err, auth.ErrEmailTaken) {
		writeMessage(w, http.StatusBadRequest, "User already exists")
		return
	} else if err != nil {
		h.fail(w, r, err, "user")
		return
	}
	token, err := h.sessions.Create(r.Context(), u.ID)
	if err != nil {
		h.fail(w, r, err, "session")
		return
	}
	h.sessions.SetCookie(w, token)
	writeJSON(w, http.StatusCreated, envelope{Success: true, Data: sessionView{User: u, Token: token}})
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var c credentials
	if err := json.NewDecoder(r.Body).Decode(&c); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	token, u, err := h.sessions.Login(r.Context(), c.Email, c.Password)
	if errors.Is(err, auth.ErrInvalidLogin) {
		writeMessage(w, http.StatusUnauthorized, "Invalid email or password")
		return
	} else if err != nil {
		h.fail(w, r, err, "session")
		return
	}
	h.sessions.SetCookie(w, token)
	writeJSON(w, http.StatusOK, envelope{Success: true, Data: sessionView{User: u, Token: token}})
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	h.sessions.Destroy(w, r)
	writeMessage(w, http.StatusOK, "Logged out")
}

func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	u, _ := auth.UserFrom(r.Context())
	writeJSON(w, http.StatusOK, envelope{Success: true, Data: u})
}

// -------- Posts

func (h *Handler) ListPosts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, err := h.posts.ListPosts(r.Context(), blog.ListParams{
		Search:   q.Get("search"),
		Category: q.Get("category"),
		Status:   q.Get("status"),
		Page:     q.Get("page"),
		Limit:    q.Get("limit"),
	})
	if err != nil {
		h.fail(w, r, err, "post")
		return
	}
	writeJSON(w, http.StatusOK, envelope{Success: true, Data: page.Posts, Pagination: &page.Pagination})
}

// postID parses the {id} path segment. A malformed id cannot name a post.
func postID(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		return uuid.Nil, blog.ErrNotFound
	}
	return id, nil
}

func (h *Handler) GetPost(w http.ResponseWriter, r *http.Request) {
	id, err := postID(r)
	if err != nil {
		h.fail(w, r, err, "post")
		return
	}
	post, err := h.posts.GetPost(r.Context(), id)
	if err != nil {
		h.fail(w, r, err, "post")
		return
	}
	writeJSON(w, http.StatusOK, envelope{Success: true, Data: post})
}

func (h *Handler) CreatePost(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.ActorFrom(r.Context())
	in, image, ok := h.readPostInput(w, r)
	if !ok {
		return
	}
	post, err := h.posts.CreatePost(r.Context(), actor, in, image)
	if err != nil {
		h.discard(image)
		h.fail(w, r, err, "post")
		return
	}
	writeJSON(w, http.StatusCreated, envelope{Success: true, Data: post})
}

func (h *Handler) UpdatePost(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.ActorFrom(r.Context())
	id, err := postID(r)
	if err != nil {
		h.fail(w, r, err, "post")
		return
	}
	in, image, ok := h.readPostInput(w, r)
	if !ok {
		return
	}
	post, err := h.posts.UpdatePost(r.Context(), actor, id, in, image)
	if err != nil {
		h.discard(image)
		if errors.Is(err, blog.ErrForbidden) {
			log.Printf("AUTH_DENIED | uid=%s post=%s reason=not_owner op=update", actor.ID, id)
		}
		h.fail(w, r, err, "post")
		return
	}
	writeJSON(w, http.StatusOK, envelope{Success: true, Data: post})
}

func (h *Handler) DeletePost(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.ActorFrom(r.Context())
	id, err := postID(r)
	if err != nil {
		h.fail(w, r, err, "post")
		return
	}
	if err := h.posts.DeletePost(r.Context(), actor, id); err != nil {
		if errors.Is(err, blog.ErrForbidden) {
			log.Printf("AUTH_DENIED | uid=%s post=%s reason=not_owner op=delete", actor.ID, id)
		}
		h.fail(w, r, err, "post")
		return
	}
	writeMessage(w, http.StatusOK, "Post deleted successfully")
}

type postBody struct {
	Title    *string `json:"title"`
	Content  *string `json:"content"`
	Excerpt  *string `json:"excerpt"`
	Category *string `json:"category"`
	Status   *string `json:"status"`
}

// readPostInput decodes a JSON, urlencoded or multipart post payload and
// saves any attached featuredImage. On failure it has already responded.
func (h *Handler) readPostInput(w http.ResponseWriter, r *http.Request) (blog.PostInput, string, bool) {
	ct := r.Header.Get("Content-Type")
	switch {
	case strings.HasPrefix(ct, "multipart/form-data"), strings.HasPrefix(ct, "application/x-www-form-urlencoded"):
		if h.uploads.MaxBytes > 0 {
			r.Body = http.MaxBytesReader(w, r.Body, h.uploads.MaxBytes+maxFormMemory)
		}
		var err error
		if strings.HasPrefix(ct, "multipart/") {
			err = r.ParseMultipartForm(maxFormMemory)
		} else {
			err = r.ParseForm()
		}
		if err != nil {
			writeMessage(w, http.StatusBadRequest, "Invalid form body")
			return blog.PostInput{}, "", false
		}
		in := blog.PostInput{
			Title:    formValue(r, "title"),
			Content:  formValue(r, "content"),
			Excerpt:  formValue(r, "excerpt"),
			Category: formValue(r, "category"),
			Status:   formValue(r, "status"),
		}
		image, err := h.uploads.Save(r, "featuredImage")
		if err != nil {
			writeMessage(w, http.StatusBadRequest, "Error: "+err.Error())
			return blog.PostInput{}, "", false
		}
		return in, image, true
	default:
		var b postBody
		if err := json.NewDecoder(r.Body).Decode(&b); err != nil {
			writeMessage(w, http.StatusBadRequest, "Invalid JSON body")
			return blog.PostInput{}, "", false
		}
		return blog.PostInput(b), "", true
	}
}

func formValue(r *http.Request, key string) *string {
	vs, ok := r.PostForm[key]
	if !ok || len(vs) == 0 {
		return nil
	}
	return &vs[0]
}

// discard removes an upload whose post was never saved.
func (h *Handler) discard(image string) {
	if image == "" {
		return
	}
	if err := h.uploads.Remove(image); err != nil {
		log.Printf("upload: remove %s: %v", image, err)
	}
}

// -------- Categories

func (h *Handler) ListCategories(w http.ResponseWriter, r *http.Request) {
	cats, err := h.posts.ListCategories(r.Context())
	if err != nil {
		h.fail(w, r, err, "category")
		return
	}
	writeJSON(w, http.StatusOK, envelope{Success: true, Data: cats})
}

func (h *Handler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	var b struct {
		Name        string `json:"name"`
		Description string `json:"description"`
	}
	if err := json.NewDecoder(r.Body).Decode(&b); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	cat, err := h.posts.CreateCategory(r.Context(), b.Name, b.Description)
	if err != nil {
		h.fail(w, r, err, "category")
		return
	}
	writeJSON(w, http.StatusCreated, envelope{Success: true, Data: cat})
}

// -------- Misc

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeMessage(w, http.StatusOK, "Server is running!")
}

func (h *Handler) NotFound(w http.ResponseWriter, r *http.Request) {
	writeMessage(w, http.StatusNotFound, "Route not found")
}
