// Package taskservice is an in-memory stand-in for the task service REST
// API. The end-to-end tests and the demo server run the gateway against it;
// it records the requests it serves so tests can assert on bodies and query
// parameters.
package taskservice

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"sync"
)

// Task is a stored task. IconAssetID links the task to an asset; the JSON
// rendering embeds the asset itself under "icon_asset".
type Task struct {
	ID          int64  `json:"id"`
	ProjectID   int64  `json:"-"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Position    int64  `json:"position"`
	Type        string `json:"type,omitempty"`
	Alias       string `json:"alias,omitempty"`
	TaskListID  int64  `json:"task_list_id,omitempty"`
	IconAssetID int64  `json:"-"`
}

type Question struct {
	ID     int64  `json:"id"`
	TaskID int64  `json:"task_id"`
	Title  string `json:"title"`
	Answer string `json:"answer,omitempty"`
}

type Asset struct {
	ID          int64  `json:"id"`
	Key         string `json:"key"`
	URL         string `json:"url,omitempty"`
	ContentType string `json:"content_type,omitempty"`
}

// ListCall records one GET /projects/{projectId}/tasks request.
type ListCall struct {
	ProjectID     int64
	Include       string
	Authorization string
}

// PatchCall records one PATCH /tasks/{id} request with its unparsed body.
type PatchCall struct {
	TaskID int64
	Body   []byte
}

// UploadCall records one POST /tasks/{id}/icon request.
type UploadCall struct {
	TaskID      int64
	Filename    string
	ContentType string
	Content     []byte
}

// Service holds the dataset and the request records.
type Service struct {
	mu        sync.RWMutex
	tasks     map[int64]*Task
	taskOrder []int64
	questions map[int64][]*Question
	assets    map[int64]*Asset

	listCalls   []ListCall
	patchCalls  []PatchCall
	uploadCalls []UploadCall

	nextID int64
}

func New() *Service {
	return &Service{
		tasks:     make(map[int64]*Task),
		questions: make(map[int64][]*Question),
		assets:    make(map[int64]*Asset),
	}
}

// Seed loads the demo dataset: one project with a few tasks, two questions
// and an icon asset.
func (s *Service) Seed() {
	icon := s.AddAsset(Asset{Key: "icons/onboarding.png", ContentType: "image/png"})
	setup := s.AddTask(Task{ProjectID: 1, Title: "Set up the workspace", Position: 1, Type: "onboarding", IconAssetID: icon.ID})
	s.AddQuestion(Question{TaskID: setup.ID, Title: "What is the project called?", Answer: "Taskgraph"})
	s.AddQuestion(Question{TaskID: setup.ID, Title: "Who reviews new tasks?"})
	s.AddTask(Task{ProjectID: 1, Title: "Invite the team", Position: 2, Alias: "invites"})
	s.AddTask(Task{ProjectID: 1, Title: "Plan the first sprint", Position: 3, Description: "Collect the backlog and sort it."})
}

// AddTask stores a copy of t and returns it. A zero ID is assigned.
func (s *Service) AddTask(t Task) *Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	t.ID = s.claimID(t.ID)
	stored := t
	s.tasks[stored.ID] = &stored
	s.taskOrder = append(s.taskOrder, stored.ID)
	return &stored
}

// AddQuestion stores a copy of q under q.TaskID and returns it.
func (s *Service) AddQuestion(q Question) *Question {
	s.mu.Lock()
	defer s.mu.Unlock()
	q.ID = s.claimID(q.ID)
	stored := q
	s.questions[stored.TaskID] = append(s.questions[stored.TaskID], &stored)
	return &stored
}

// AddAsset stores a copy of a and returns it.
func (s *Service) AddAsset(a Asset) *Asset {
	s.mu.Lock()
	defer s.mu.Unlock()
	a.ID = s.claimID(a.ID)
	stored := a
	s.assets[stored.ID] = &stored
	return &stored
}

// Task returns a copy of the stored task.
func (s *Service) Task(id int64) (Task, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tasks[id]
	if !ok {
		return Task{}, false
	}
	return *t, true
}

// ListCalls returns the recorded project listings in request order.
func (s *Service) ListCalls() []ListCall {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]ListCall(nil), s.listCalls...)
}

// PatchCalls returns the recorded task updates in request order.
func (s *Service) PatchCalls() []PatchCall {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]PatchCall(nil), s.patchCalls...)
}

// UploadCalls returns the recorded icon uploads in request order.
func (s *Service) UploadCalls() []UploadCall {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]UploadCall(nil), s.uploadCalls...)
}

func (s *Service) claimID(id int64) int64 {
	if id == 0 {
		s.nextID++
		return s.nextID
	}
	if id > s.nextID {
		s.nextID = id
	}
	return id
}

// Handler returns the REST surface the gateway consumes.
func (s *Service) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /projects/{projectId}/tasks", s.listTasks)
	mux.HandleFunc("GET /tasks/{id}", s.getTask)
	mux.HandleFunc("GET /tasks/{id}/questions", s.listQuestions)
	mux.HandleFunc("PATCH /tasks/{id}", s.patchTask)
	mux.HandleFunc("POST /tasks/{id}/icon", s.attachIcon)
	return mux
}

func (s *Service) listTasks(w http.ResponseWriter, r *http.Request) {
	projectID, err := strconv.ParseInt(r.PathValue("projectId"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid project id")
		return
	}
	include := r.URL.Query().Get("include")

	s.mu.Lock()
	defer s.mu.Unlock()
	s.listCalls = append(s.listCalls, ListCall{
		ProjectID:     projectID,
		Include:       include,
		Authorization: r.Header.Get("Authorization"),
	})

	tasks := make([]any, 0)
	for _, id := range s.taskOrder {
		t := s.tasks[id]
		if t.ProjectID != projectID {
			continue
		}
		tasks = append(tasks, s.renderTask(t, include == "icon_asset"))
	}
	writeData(w, map[string]any{"tasks": tasks})
}

// getTask always embeds the icon asset; only the collection endpoint makes
// embedding opt-in. A missing task is a JSON null, not a 404.
func (s *Service) getTask(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid task id")
		return
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tasks[id]
	if !ok {
		writeData(w, map[string]any{"task": nil})
		return
	}
	writeData(w, map[string]any{"task": s.renderTask(t, true)})
}

func (s *Service) listQuestions(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid task id")
		return
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.tasks[id]; !ok {
		writeError(w, http.StatusNotFound, fmt.Sprintf("task %d not found", id))
		return
	}
	questions := s.questions[id]
	if questions == nil {
		questions = []*Question{}
	}
	writeData(w, map[string]any{"questions": questions})
}

func (s *Service) patchTask(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid task id")
		return
	}
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "unreadable body")
		return
	}
	var envelope struct {
		Task map[string]any `json:"task"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.patchCalls = append(s.patchCalls, PatchCall{TaskID: id, Body: body})
	t, ok := s.tasks[id]
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Sprintf("task %d not found", id))
		return
	}
	if v, ok := envelope.Task["title"].(string); ok {
		t.Title = v
	}
	if v, ok := envelope.Task["description"].(string); ok {
		t.Description = v
	}
	if v, ok := envelope.Task["position"].(float64); ok {
		t.Position = int64(v)
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Service) attachIcon(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid task id")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing file part")
		return
	}
	defer file.Close()
	content, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "unreadable file part")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[id]
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Sprintf("task %d not found", id))
		return
	}
	s.uploadCalls = append(s.uploadCalls, UploadCall{
		TaskID:      id,
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Content:     content,
	})
	asset := &Asset{
		ID:          s.claimID(0),
		Key:         fmt.Sprintf("icons/%d/%s", id, header.Filename),
		ContentType: header.Header.Get("Content-Type"),
	}
	s.assets[asset.ID] = asset
	t.IconAssetID = asset.ID
	writeData(w, map[string]any{"task": s.renderTask(t, true)})
}

// taskPayload embeds the task's asset when the caller asked for it.
type taskPayload struct {
	*Task
	IconAsset *Asset `json:"icon_asset,omitempty"`
}

// renderTask expects s.mu to be held.
func (s *Service) renderTask(t *Task, withIcon bool) taskPayload {
	p := taskPayload{Task: t}
	if withIcon && t.IconAssetID != 0 {
		p.IconAsset = s.assets[t.IconAssetID]
	}
	return p
}

func writeData(w http.ResponseWriter, data map[string]any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"data": data})
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{"error": msg})
}
