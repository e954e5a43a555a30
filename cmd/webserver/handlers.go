package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"

	"coursegrader"

	"github.com/gorilla/sessions"
)

const maxBodyBytes = 64 << 10

type courseView struct {
	ID                string                    `json:"id"`
	Title             string                    `json:"title"`
	Slides            []slideSummary            `json:"slides"`
	Quizzes           []quizView                `json:"quizzes"`
	Rubrics           []rubricView              `json:"rubrics"`
	Philosophers      []philosopherView         `json:"philosophers"`
	Resources         []coursegrader.Resource   `json:"resources"`
	Reflections       []coursegrader.Reflection `json:"reflections"`
	PracticeQuestions []string                  `json:"practice_questions"`
	Concepts          []string                  `json:"concepts"`
}

type slideSummary struct {
	Index int    `json:"index"`
	ID    string `json:"id"`
	Title string `json:"title"`
}

// quizView leaves out answers and explanations.
type quizView struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Questions []struct {
		Question string   `json:"question"`
		Options  []string `json:"options"`
	} `json:"questions"`
}

// rubricView leaves out the expected terms.
type rubricView struct {
	ID     string `json:"id"`
	Prompt string `json:"prompt"`
}

type philosopherView struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Era       string `json:"era"`
	Tradition string `json:"tradition"`
	Greeting  string `json:"greeting"`
}

func (s *Server) handleCourse(w http.ResponseWriter, r *http.Request) {
	c := s.course
	view := courseView{
		ID:                c.ID,
		Title:             c.Title,
		Resources:         c.Resources,
		Reflections:       c.Reflections,
		PracticeQuestions: c.PracticeQuestions,
		Concepts:          c.Concepts,
	}
	for i, slide := range c.Slides {
		view.Slides = append(view.Slides, slideSummary{Index: i, ID: slide.ID, Title: slide.Title})
	}
	for _, q := range c.Quizzes {
		qv := quizView{ID: q.ID, Title: q.Title}
		for _, question := range q.Questions {
			qv.Questions = append(qv.Questions, struct {
				Question string   `json:"question"`
				Options  []string `json:"options"`
			}{question.Question, question.Options})
		}
		view.Quizzes = append(view.Quizzes, qv)
	}
	for _, rb := range c.Rubrics {
		view.Rubrics = append(view.Rubrics, rubricView{ID: rb.ID, Prompt: rb.Prompt})
	}
	for _, p := range c.Philosophers {
		view.Philosophers = append(view.Philosophers, philosopherView{
			ID: p.ID, Name: p.Name, Era: p.Era, Tradition: p.Tradition, Greeting: p.Greeting,
		})
	}
	writeJSON(w, http.StatusOK, view)
}

// learner loads the learner session from the request, creating one on the
// first visit.
func (s *Server) learner(r *http.Request) (*sessions.Session, *coursegrader.LearnerSession) {
	session, err := s.store.Get(r, sessionName)
	if err != nil {
		// an unreadable cookie (rotated secret, expired file) starts over
		log.Printf("Session load error: %v", err)
	}
	if v, ok := session.Values["learner"].(coursegrader.LearnerSession); ok {
		return session, &v
	}
	return session, coursegrader.NewLearnerSession(s.now())
}

func (s *Server) saveLearner(w http.ResponseWriter, r *http.Request, session *sessions.Session, learner *coursegrader.LearnerSession) {
	session.Values["learner"] = *learner
	if err := session.Save(r, w); err != nil {
		log.Printf("Session save error: %v", err)
	}
}

type slideResponse struct {
	Index          int                `json:"index"`
	Total          int                `json:"total"`
	Slide          coursegrader.Slide `json:"slide"`
	Interactive    bool               `json:"interactive"`
	SavedResponse  string             `json:"saved_response,omitempty"`
	ProgressFactor float64            `json:"progress"`
}

func (s *Server) slideResponse(learner *coursegrader.LearnerSession, withNotes bool) (*slideResponse, error) {
	slide, err := s.course.Slide(learner.CurrentSlide)
	if err != nil {
		return nil, err
	}
	resp := &slideResponse{
		Index:          learner.CurrentSlide,
		Total:          len(s.course.Slides),
		Slide:          *slide,
		Interactive:    slide.Interactive(),
		SavedResponse:  learner.DiscussionResponses()[slide.ID],
		ProgressFactor: float64(learner.CurrentSlide+1) / float64(len(s.course.Slides)),
	}
	if !withNotes {
		resp.Slide.PresenterNotes = ""
	}
	return resp, nil
}

func (s *Server) handleCurrentSlide(w http.ResponseWriter, r *http.Request) {
	session, learner := s.learner(r)
	if learner.CurrentSlide >= len(s.course.Slides) {
		learner.CurrentSlide = 0
	}
	resp, err := s.slideResponse(learner, r.URL.Query().Get("notes") == "1")
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.saveLearner(w, r, session, learner)
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleNextSlide(w http.ResponseWriter, r *http.Request) {
	session, learner := s.learner(r)
	learner.Next(len(s.course.Slides))
	s.respondSlide(w, r, session, learner)
}

func (s *Server) handlePrevSlide(w http.ResponseWriter, r *http.Request) {
	session, learner := s.learner(r)
	learner.Prev()
	s.respondSlide(w, r, session, learner)
}

func (s *Server) handleGotoSlide(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Index int `json:"index"`
	}
	if err := decodeJSON(w, r, &body); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	session, learner := s.learner(r)
	if err := learner.GoTo(body.Index, len(s.course.Slides)); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	s.respondSlide(w, r, session, learner)
}

func (s *Server) respondSlide(w http.ResponseWriter, r *http.Request, session *sessions.Session, learner *coursegrader.LearnerSession) {
	resp, err := s.slideResponse(learner, false)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.saveLearner(w, r, session, learner)
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleTimer(w http.ResponseWriter, r *http.Request) {
	session, learner := s.learner(r)
	status := learner.Timer(s.now())
	s.saveLearner(w, r, session, learner)
	writeJSON(w, http.StatusOK, status)
}

func (s *Server) handleStartTimer(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Minutes int `json:"minutes"`
	}
	if r.ContentLength != 0 {
		if err := decodeJSON(w, r, &body); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
	}

	session, learner := s.learner(r)
	minutes := body.Minutes
	if minutes == 0 {
		slide, err := s.course.Slide(learner.CurrentSlide)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		minutes = slide.TimerMinutes
	}
	if err := learner.StartTimer(minutes, s.now()); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	status := learner.Timer(s.now())
	s.saveLearner(w, r, session, learner)
	writeJSON(w, http.StatusOK, status)
}

func (s *Server) handleResponse(w http.ResponseWriter, r *http.Request) {
	var body struct {
		SlideID string `json:"slide_id"`
		Text    string `json:"text"`
	}
	if err := decodeJSON(w, r, &body); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	slide := s.course.SlideByID(body.SlideID)
	if slide == nil || !slide.Interactive() {
		writeError(w, http.StatusNotFound, fmt.Errorf("no discussion on slide %q", body.SlideID))
		return
	}

	session, learner := s.learner(r)
	saved := learner.SaveResponse(slide.ID, body.Text)
	s.saveLearner(w, r, session, learner)
	writeJSON(w, http.StatusOK, map[string]bool{"saved": saved})
}

func (s *Server) handleReflections(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Answers  map[string]string `json:"answers"`
		Feedback bool              `json:"feedback"`
	}
	if err := decodeJSON(w, r, &body); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	session, learner := s.learner(r)
	if err := learner.SaveReflections(s.course, body.Answers); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	s.saveLearner(w, r, session, learner)

	resp := map[string]interface{}{"saved": len(body.Answers)}
	if body.Feedback {
		logger := s.transcript(learner.ID)
		if logger != nil {
			defer logger.Close()
		}
		feedback := make(map[string]string, len(body.Answers))
		for _, refl := range s.course.Reflections {
			if text, ok := body.Answers[refl.Key]; ok {
				feedback[refl.Key] = coursegrader.Feedback(r.Context(), s.generator, text, refl.Prompt, logger)
			}
		}
		resp["feedback"] = feedback
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleQuiz(w http.ResponseWriter, r *http.Request) {
	quiz, err := s.course.Quiz(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}

	var body struct {
		Answers map[int]int `json:"answers"`
	}
	if err := decodeJSON(w, r, &body); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	result, err := coursegrader.ScoreQuiz(quiz, body.Answers)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	session, learner := s.learner(r)
	learner.RecordQuiz(result)
	s.saveLearner(w, r, session, learner)
	writeJSON(w, http.StatusOK, result)
}

// handleGrade is the stateless grading endpoint: the request carries its own
// terms and threshold.
func (s *Server) handleGrade(w http.ResponseWriter, r *http.Request) {
	var req coursegrader.GradingRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	result, err := req.Grade()
	if errors.Is(err, coursegrader.ErrInvalidThreshold) {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	coursegrader.VerboseLog("Graded answer (%d chars): %d/%d terms, passed=%t",
		len(req.Answer), result.MatchedCount, result.TotalCount, result.Passed)
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleRubricGrade(w http.ResponseWriter, r *http.Request) {
	rubric, err := s.course.Rubric(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}

	var body struct {
		Answer string `json:"answer"`
	}
	if err := decodeJSON(w, r, &body); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	req := rubric.Request(body.Answer)
	result, err := req.Grade()
	if err != nil {
		// thresholds are validated when the course loads
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	coursegrader.VerboseLog("Graded rubric %s answer: %d/%d terms, passed=%t",
		rubric.ID, result.MatchedCount, result.TotalCount, result.Passed)

	session, learner := s.learner(r)
	learner.RecordShortAnswer(rubric.ID, body.Answer, result, s.now())
	s.saveLearner(w, r, session, learner)

	writeJSON(w, http.StatusOK, struct {
		*coursegrader.GradingResult
		Missing []string `json:"missing"`
	}{result, req.Missing(result)})
}

func (s *Server) handleSelfAssessment(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Ratings map[string]int `json:"ratings"`
	}
	if err := decodeJSON(w, r, &body); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	sa, err := coursegrader.AssessSelf(s.course.Concepts, body.Ratings)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusOK, sa)
}

func (s *Server) handleRoleplay(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Question string `json:"question"`
	}
	if err := decodeJSON(w, r, &body); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	session, learner := s.learner(r)
	s.saveLearner(w, r, session, learner)

	logger := s.transcript(learner.ID)
	if logger != nil {
		defer logger.Close()
	}

	reply, err := s.roleplay.Ask(r.Context(), r.PathValue("philosopher"), body.Question, logger)
	if errors.Is(err, coursegrader.ErrPhilosopherNotFound) {
		writeError(w, http.StatusNotFound, err)
		return
	}
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusOK, reply)
}

func (s *Server) handleProgress(w http.ResponseWriter, r *http.Request) {
	_, learner := s.learner(r)
	writeJSON(w, http.StatusOK, learner.Progress(s.course))
}

func (s *Server) handleExportJSON(w http.ResponseWriter, r *http.Request) {
	_, learner := s.learner(r)
	now := s.now()
	data, err := learner.ExportWork(now)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", coursegrader.ExportFilename(s.course.ID, now, "json")))
	w.Write(data)
}

func (s *Server) handleExportPDF(w http.ResponseWriter, r *http.Request) {
	_, learner := s.learner(r)
	now := s.now()

	var buf bytes.Buffer
	if err := learner.ExportWorkPDF(&buf, s.course, coursegrader.DefaultPDFConfig, now); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", coursegrader.ExportFilename(s.course.ID, now, "pdf")))
	w.Write(buf.Bytes())
}

// transcript opens the learner's LLM transcript; nil when logging is off
// or the file cannot be opened.
func (s *Server) transcript(sessionID string) *coursegrader.LLMLogger {
	if s.logDir == "" {
		return nil
	}
	logger, err := coursegrader.NewLLMLogger(s.logDir, sessionID)
	if err != nil {
		log.Printf("Failed to open transcript for %s: %v", sessionID, err)
		return nil
	}
	return logger
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Failed to write response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
