// Package testbackend is a scripted stand-in for the Victor Springs
// REST backend, used by the workflow and client tests. Tests configure
// responses up front and assert on what the client actually sent.
package testbackend

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"

	"github.com/gorilla/mux"

	"github.com/wachira567/victorsprings-client/internal/api"
)

// Failure scripts an error response for one endpoint.
type Failure struct {
	Status  int
	Code    string
	Message string
}

// StatusStep scripts one answer of the payment-status endpoint. Err
// makes the endpoint respond 502, which the client surfaces as a
// transient error.
type StatusStep struct {
	Status api.PaymentStatus
	Err    bool
}

// KYCSubmission is the parsed multipart body of a KYC submit.
type KYCSubmission struct {
	Fields map[string]string
	Files  map[string][]byte
}

// ApplicationSubmission is the parsed multipart body of an application
// submit.
type ApplicationSubmission struct {
	Fields map[string]string
	Files  map[string][]byte
}

// Server is the fake backend. Zero value fields mean "succeed with
// defaults"; tests mutate the scripting fields before driving the
// client.
type Server struct {
	*httptest.Server

	mu sync.Mutex

	// Scripting
	CodeToken       string
	SendCodeFail    *Failure
	SubmitKYCFail   *Failure
	InitiateFail    *Failure
	CreateAppFail   *Failure
	StatusScript    []StatusStep
	PaymentID       string
	DocumentBytes   []byte
	DirectFetchFail bool
	ProxyFetchFail  bool

	// Recording
	LastAuthorization string
	counts            map[string]int
	LastKYC         *KYCSubmission
	LastApplication *ApplicationSubmission
	LastInitiate    *api.InitiatePaymentParams
	statusPolls     int
}

func New() *Server {
	s := &Server{
		CodeToken: "code-session-token",
		PaymentID: "pay_0001",
		counts:    make(map[string]int),
	}

	r := mux.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			s.mu.Lock()
			s.LastAuthorization = req.Header.Get("Authorization")
			s.mu.Unlock()
			next.ServeHTTP(w, req)
		})
	})
	r.HandleFunc("/api/v1/verification/send-code", s.handleSendCode).Methods(http.MethodPost)
	r.HandleFunc("/api/v1/verification/submit", s.handleSubmitKYC).Methods(http.MethodPost)
	r.HandleFunc("/api/v1/payments/initiate", s.handleInitiatePayment).Methods(http.MethodPost)
	r.HandleFunc("/api/v1/payments/{id}/status", s.handlePaymentStatus).Methods(http.MethodGet)
	r.HandleFunc("/api/v1/applications", s.handleCreateApplication).Methods(http.MethodPost)
	r.HandleFunc("/api/v1/documents/proxy", s.handleProxyDocument).Methods(http.MethodGet)
	r.HandleFunc("/assets/{name}", s.handleDirectAsset).Methods(http.MethodGet)

	s.Server = httptest.NewServer(r)
	return s
}

// Count returns how many requests hit the given route key, e.g.
// "send-code" or "status".
func (s *Server) Count(key string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counts[key]
}

// StatusPolls returns how many status requests were issued.
func (s *Server) StatusPolls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.statusPolls
}

func (s *Server) bump(key string) {
	s.mu.Lock()
	s.counts[key]++
	s.mu.Unlock()
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func respondFailure(w http.ResponseWriter, f *Failure) {
	respondJSON(w, f.Status, map[string]string{"code": f.Code, "message": f.Message})
}

func (s *Server) handleSendCode(w http.ResponseWriter, r *http.Request) {
	s.bump("send-code")
	if s.SendCodeFail != nil {
		respondFailure(w, s.SendCodeFail)
		return
	}
	var body struct {
		Phone string `json:"phone"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Phone == "" {
		respondJSON(w, http.StatusBadRequest, map[string]string{"code": "invalid_payload", "message": "phone is required"})
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{
		"token":   s.CodeToken,
		"message": fmt.Sprintf("Code sent to %s", body.Phone),
	})
}

func parseMultipart(r *http.Request) (map[string]string, map[string][]byte, error) {
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		return nil, nil, err
	}
	fields := make(map[string]string)
	for k, v := range r.MultipartForm.Value {
		if len(v) > 0 {
			fields[k] = v[0]
		}
	}
	files := make(map[string][]byte)
	for k, headers := range r.MultipartForm.File {
		if len(headers) == 0 {
			continue
		}
		f, err := headers[0].Open()
		if err != nil {
			return nil, nil, err
		}
		buf, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			return nil, nil, err
		}
		files[k] = buf
	}
	return fields, files, nil
}

func (s *Server) handleSubmitKYC(w http.ResponseWriter, r *http.Request) {
	s.bump("submit-kyc")
	if s.SubmitKYCFail != nil {
		respondFailure(w, s.SubmitKYCFail)
		return
	}
	fields, files, err := parseMultipart(r)
	if err != nil {
		respondJSON(w, http.StatusBadRequest, map[string]string{"code": "invalid_payload", "message": "bad multipart body"})
		return
	}
	s.mu.Lock()
	s.LastKYC = &KYCSubmission{Fields: fields, Files: files}
	s.mu.Unlock()
	respondJSON(w, http.StatusOK, map[string]string{"message": "Verification submitted for review"})
}

func (s *Server) handleInitiatePayment(w http.ResponseWriter, r *http.Request) {
	s.bump("initiate")
	if s.InitiateFail != nil {
		respondFailure(w, s.InitiateFail)
		return
	}
	var p api.InitiatePaymentParams
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		respondJSON(w, http.StatusBadRequest, map[string]string{"code": "invalid_payload", "message": "bad payment body"})
		return
	}
	s.mu.Lock()
	s.LastInitiate = &p
	s.mu.Unlock()
	respondJSON(w, http.StatusOK, map[string]string{
		"payment_id": s.PaymentID,
		"message":    "Payment prompt sent",
	})
}

func (s *Server) handlePaymentStatus(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	i := s.statusPolls
	s.statusPolls++
	var step StatusStep
	if i < len(s.StatusScript) {
		step = s.StatusScript[i]
	} else if len(s.StatusScript) > 0 {
		step = s.StatusScript[len(s.StatusScript)-1]
	} else {
		step = StatusStep{Status: api.PaymentPending}
	}
	s.mu.Unlock()

	if step.Err {
		respondJSON(w, http.StatusBadGateway, map[string]string{"code": "upstream_error", "message": "status check unavailable"})
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": string(step.Status)})
}

func (s *Server) handleCreateApplication(w http.ResponseWriter, r *http.Request) {
	s.bump("create-application")
	if s.CreateAppFail != nil {
		respondFailure(w, s.CreateAppFail)
		return
	}
	fields, files, err := parseMultipart(r)
	if err != nil {
		respondJSON(w, http.StatusBadRequest, map[string]string{"code": "invalid_payload", "message": "bad multipart body"})
		return
	}
	s.mu.Lock()
	s.LastApplication = &ApplicationSubmission{Fields: fields, Files: files}
	s.mu.Unlock()
	respondJSON(w, http.StatusOK, map[string]string{
		"application_id": "app_0001",
		"message":        "Application submitted",
	})
}

func (s *Server) handleProxyDocument(w http.ResponseWriter, r *http.Request) {
	s.bump("proxy")
	if s.ProxyFetchFail {
		respondJSON(w, http.StatusBadGateway, map[string]string{"code": "upstream_error", "message": "could not reach source"})
		return
	}
	if r.URL.Query().Get("url") == "" {
		respondJSON(w, http.StatusBadRequest, map[string]string{"code": "invalid_payload", "message": "url is required"})
		return
	}
	w.Header().Set("Content-Type", "application/octet-stream")
	w.Write(s.DocumentBytes)
}

func (s *Server) handleDirectAsset(w http.ResponseWriter, r *http.Request) {
	s.bump("direct")
	if s.DirectFetchFail {
		respondJSON(w, http.StatusForbidden, map[string]string{"code": "forbidden", "message": "asset not public"})
		return
	}
	w.Header().Set("Content-Type", "application/octet-stream")
	w.Write(s.DocumentBytes)
}
