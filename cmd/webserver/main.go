package main

import (
	"encoding/gob"
	"log"
	"net/http"
	"time"

	"coursegrader"

	"github.com/gorilla/sessions"
)

const sessionName = "learner-session"

type Server struct {
	course    *coursegrader.Course
	store     sessions.Store
	generator coursegrader.Generator
	roleplay  *coursegrader.Roleplay
	logDir    string
	now       func() time.Time
}

func init() {
	gob.Register(coursegrader.LearnerSession{})
}

func main() {
	cfg := coursegrader.LoadConfig()
	coursegrader.SetVerbose(cfg.Verbose)

	course, err := cfg.Course()
	if err != nil {
		log.Fatalf("Failed to load course: %v", err)
	}
	log.Printf("Loaded course %s: %d slides, %d quizzes, %d rubrics",
		course.ID, len(course.Slides), len(course.Quizzes), len(course.Rubrics))

	server := NewServer(course, newSessionStore(cfg.SessionDir, cfg.SessionSecret), cfg.Generator(), cfg.LogDir)

	log.Printf("Starting server on port %s", cfg.Port)
	log.Fatal(http.ListenAndServe(":"+cfg.Port, server.Routes()))
}

// newSessionStore keeps learner sessions on disk so journals and answers are
// not bounded by the cookie size; the cookie only carries the session id.
func newSessionStore(dir, secret string) *sessions.FilesystemStore {
	store := sessions.NewFilesystemStore(dir, []byte(secret))
	store.MaxLength(1 << 20)
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   7 * 24 * 60 * 60,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
	return store
}

func NewServer(course *coursegrader.Course, store sessions.Store, generator coursegrader.Generator, logDir string) *Server {
	return &Server{
		course:    course,
		store:     store,
		generator: generator,
		roleplay:  coursegrader.NewRoleplay(course, generator),
		logDir:    logDir,
		now:       time.Now,
	}
}

func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/course", s.handleCourse)

	mux.HandleFunc("GET /api/slides/current", s.handleCurrentSlide)
	mux.HandleFunc("POST /api/slides/next", s.handleNextSlide)
	mux.HandleFunc("POST /api/slides/prev", s.handlePrevSlide)
	mux.HandleFunc("POST /api/slides/goto", s.handleGotoSlide)

	mux.HandleFunc("GET /api/timer", s.handleTimer)
	mux.HandleFunc("POST /api/timer", s.handleStartTimer)

	mux.HandleFunc("POST /api/responses", s.handleResponse)
	mux.HandleFunc("POST /api/reflections", s.handleReflections)
	mux.HandleFunc("POST /api/quiz/{id}", s.handleQuiz)
	mux.HandleFunc("POST /api/grade", s.handleGrade)
	mux.HandleFunc("POST /api/rubrics/{id}/grade", s.handleRubricGrade)
	mux.HandleFunc("POST /api/selfassessment", s.handleSelfAssessment)
	mux.HandleFunc("POST /api/roleplay/{philosopher}", s.handleRoleplay)

	mux.HandleFunc("GET /api/progress", s.handleProgress)
	mux.HandleFunc("GET /api/export", s.handleExportJSON)
	mux.HandleFunc("GET /api/export.pdf", s.handleExportPDF)

	return logRequests(mux)
}

func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !coursegrader.Verbose() {
			next.ServeHTTP(w, r)
			return
		}
		start := time.Now()
		next.ServeHTTP(w, r)
		coursegrader.VerboseLog("%s %s (%s)", r.Method, r.URL.Path, time.Since(start))
	})
}
