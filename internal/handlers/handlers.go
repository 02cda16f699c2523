package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"html/template"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"

	"golang.org/x/sync/semaphore"

	"github.com/Brownie44l1/osteo-care/internal/auth"
	"github.com/Brownie44l1/osteo-care/internal/diagnosis"
	"github.com/Brownie44l1/osteo-care/internal/metrics"
	"github.com/Brownie44l1/osteo-care/internal/preprocess"
	"github.com/Brownie44l1/osteo-care/internal/session"
)

// Options configures a Handler.
type Options struct {
	// UploadDir keeps a copy of every accepted X-ray. Empty disables it.
	UploadDir string
	// MaxUploadBytes caps request bodies on upload routes.
	MaxUploadBytes int64
	// MaxConcurrentInference caps in-flight inference requests; 0 is no cap.
	MaxConcurrentInference int64
	CORSOrigin             string
	Logger                 *slog.Logger
	Metrics                *metrics.Recorder
}

type Handler struct {
	diag     *diagnosis.Service
	users    *auth.Service
	sessions *session.Store
	pages    map[string]*template.Template
	logger   *slog.Logger
	metrics  *metrics.Recorder
	limiter  *semaphore.Weighted

	uploadDir  string
	maxUpload  int64
	corsOrigin string
}

type PredictionRequest struct {
	Image []float32 `json:"image"`
}

func NewHandler(diag *diagnosis.Service, users *auth.Service, sessions *session.Store, opts Options) (*Handler, error) {
	pages, err := parsePages()
	if err != nil {
		return nil, err
	}

	h := &Handler{
		diag:       diag,
		users:      users,
		sessions:   sessions,
		pages:      pages,
		logger:     opts.Logger,
		metrics:    opts.Metrics,
		uploadDir:  opts.UploadDir,
		maxUpload:  opts.MaxUploadBytes,
		corsOrigin: opts.CORSOrigin,
	}
	if h.logger == nil {
		h.logger = slog.Default()
	}
	if h.maxUpload <= 0 {
		h.maxUpload = 10 << 20
	}
	if h.corsOrigin == "" {
		h.corsOrigin = "*"
	}
	if opts.MaxConcurrentInference > 0 {
		h.limiter = semaphore.NewWeighted(opts.MaxConcurrentInference)
	}
	if h.uploadDir != "" {
		if err := os.MkdirAll(h.uploadDir, 0o750); err != nil {
			return nil, err
		}
	}
	return h, nil
}

// Routes returns the web front-end's handler tree.
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", enableCORS(h.corsOrigin, h.Health))
	mux.HandleFunc("/predict", enableCORS(h.corsOrigin, h.limitInference(h.Predict)))
	mux.HandleFunc("/prediction", enableCORS(h.corsOrigin, h.limitInference(h.Prediction)))
	mux.Handle("/metrics", h.metrics.Handler())

	mux.HandleFunc("/questionnaire", h.limitInference(h.Questionnaire))
	mux.HandleFunc("/result", h.Result)
	mux.HandleFunc("/signup", h.Signup)
	mux.HandleFunc("/login", h.Login)
	mux.HandleFunc("/logout", h.Logout)
	mux.HandleFunc("/questionnaire_option", h.staticPage("option", "Choose an assessment"))
	mux.HandleFunc("/about_us", h.staticPage("about", "About us"))
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		h.staticPage("intro", "Welcome")(w, r)
	})

	return logRequests(h.logger, mux)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// Predict grades a client-preprocessed (1, 200, 200, 1) tensor sent as JSON.
func (h *Handler) Predict(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxUpload))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Failed to read request body")
		return
	}

	var req PredictionRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	grade, err := h.diag.GradeTensor(r.Context(), req.Image)
	if err != nil {
		h.predictionError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, grade)
}

// Prediction serves the upload form on GET and grades an uploaded X-ray on POST.
func (h *Handler) Prediction(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.render(w, r, http.StatusOK, "prediction", pageData{Title: "X-ray severity"})
		return
	case http.MethodPost:
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)
	if err := r.ParseMultipartForm(h.maxUpload); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "File too large")
			return
		}
		writeError(w, http.StatusBadRequest, "No file part in the request")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		// A part with an empty filename is parsed as a plain value.
		if _, ok := r.MultipartForm.Value["file"]; ok {
			writeError(w, http.StatusBadRequest, "No file selected")
			return
		}
		writeError(w, http.StatusBadRequest, "No file part in the request")
		return
	}
	defer file.Close()

	if header.Filename == "" {
		writeError(w, http.StatusBadRequest, "No file selected")
		return
	}
	if !preprocess.AllowedFilename(header.Filename) {
		h.metrics.Failure(metrics.KindImage, "file_type")
		writeError(w, http.StatusBadRequest, "Invalid file type")
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "read upload", "error", err)
		writeError(w, http.StatusInternalServerError, "Error occurred during prediction")
		return
	}

	h.logger.InfoContext(r.Context(), "received x-ray", "filename", header.Filename, "bytes", len(data))

	if h.uploadDir != "" {
		dst := filepath.Join(h.uploadDir, secureFilename(header.Filename))
		if err := os.WriteFile(dst, data, 0o600); err != nil {
			h.logger.ErrorContext(r.Context(), "save upload", "path", dst, "error", err)
			writeError(w, http.StatusInternalServerError, "Error occurred during prediction")
			return
		}
	}

	grade, err := h.diag.GradeImage(r.Context(), bytes.NewReader(data))
	if err != nil {
		h.predictionError(w, r, err)
		return
	}

	h.logger.InfoContext(r.Context(), "graded x-ray", "kl_grade", grade.KLGrade, "label", grade.SeverityLabel)
	writeJSON(w, http.StatusOK, grade)
}

func (h *Handler) predictionError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, preprocess.ErrDecode):
		writeError(w, http.StatusBadRequest, "Invalid image format. Supported: JPEG, PNG")
	case errors.Is(err, diagnosis.ErrInputRejected):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, diagnosis.ErrEmptyOutput):
		h.logger.ErrorContext(r.Context(), "empty prediction result")
		writeError(w, http.StatusInternalServerError, "Empty prediction result")
	default:
		h.logger.ErrorContext(r.Context(), "prediction error", "error", err)
		writeError(w, http.StatusInternalServerError, "Error occurred during prediction")
	}
}

// Questionnaire serves the form on GET and scores it on POST, then sends the
// browser to /result.
func (h *Handler) Questionnaire(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.render(w, r, http.StatusOK, "questionnaire", pageData{Title: "Risk assessment"})
		return
	case http.MethodPost:
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if err := r.ParseForm(); err != nil {
		h.render(w, r, http.StatusBadRequest, "questionnaire", pageData{Title: "Risk assessment", Error: "Could not read the form."})
		return
	}

	answers := preprocess.AnswersFromForm(r.PostForm.Get)
	risk, err := h.diag.AssessRisk(r.Context(), answers)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "questionnaire prediction", "error", err)
		h.render(w, r, http.StatusInternalServerError, "questionnaire", pageData{Title: "Risk assessment", Error: "Error occurred during prediction"})
		return
	}

	h.sessions.Update(w, r, func(d *session.Data) {
		d.RiskLevel = risk.Label
		d.Answers = risk.Answers
		d.Name = formValue(r, "name", "Unknown")
		d.Gender = formValue(r, "gender", "Not Specified")
		d.Age = formValue(r, "age", "Not Specified")
	})

	http.Redirect(w, r, "/result", http.StatusSeeOther)
}

// formValue returns the posted value for key, or def when the field was not
// sent at all.
func formValue(r *http.Request, key, def string) string {
	if vs, ok := r.PostForm[key]; ok && len(vs) > 0 {
		return vs[0]
	}
	return def
}

func (h *Handler) Result(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	d := h.sessions.Get(r)
	orDefault(&d.RiskLevel, "Not Available")
	orDefault(&d.Name, "Unknown")
	orDefault(&d.Gender, "Not Specified")
	orDefault(&d.Age, "Not Specified")
	h.render(w, r, http.StatusOK, "result", pageData{Title: "Result", Result: d})
}

func orDefault(s *string, def string) {
	if *s == "" {
		*s = def
	}
}

func (h *Handler) Signup(w http.ResponseWriter, r *http.Request) {
	page := pageData{Title: "Sign up"}
	switch r.Method {
	case http.MethodGet:
		h.render(w, r, http.StatusOK, "signup", page)
		return
	case http.MethodPost:
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	_, err := h.users.Register(r.Context(), r.PostFormValue("full_name"), r.PostFormValue("email"), r.PostFormValue("password"))
	switch {
	case err == nil:
		page.Message = "Registration successful! Please log in."
		h.render(w, r, http.StatusOK, "login", page)
	case errors.Is(err, auth.ErrEmailTaken):
		page.Error = "Email is already registered."
		h.render(w, r, http.StatusConflict, "signup", page)
	case errors.Is(err, auth.ErrMissingField):
		page.Error = "Full name, email and password are required."
		h.render(w, r, http.StatusBadRequest, "signup", page)
	case errors.Is(err, auth.ErrPasswordTooLong):
		page.Error = "Password is too long."
		h.render(w, r, http.StatusBadRequest, "signup", page)
	default:
		h.logger.ErrorContext(r.Context(), "register user", "error", err)
		page.Error = "Registration failed, please try again."
		h.render(w, r, http.StatusInternalServerError, "signup", page)
	}
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	page := pageData{Title: "Log in"}
	switch r.Method {
	case http.MethodGet:
		h.render(w, r, http.StatusOK, "login", page)
		return
	case http.MethodPost:
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	u, err := h.users.Authenticate(r.Context(), r.PostFormValue("email"), r.PostFormValue("password"))
	if err != nil {
		if !errors.Is(err, auth.ErrInvalidCredentials) {
			h.logger.ErrorContext(r.Context(), "authenticate user", "error", err)
		}
		page.Error = "Invalid email or password."
		h.render(w, r, http.StatusUnauthorized, "login", page)
		return
	}

	h.sessions.Update(w, r, func(d *session.Data) {
		d.UserEmail = u.Email
		d.UserName = u.FullName
	})
	page.User = u.FullName
	page.Message = "Welcome " + u.FullName + "!"
	h.render(w, r, http.StatusOK, "intro", page)
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	h.sessions.Update(w, r, func(d *session.Data) {
		d.UserEmail = ""
		d.UserName = ""
	})
	http.Redirect(w, r, "/", http.StatusSeeOther)
}
