// Package oidctest provides an in-process SSO OIDC server for tests.
//
// It speaks the same REST JSON protocol as the AWS SSO OIDC service for the
// three operations the device flow uses. Error responses carry the exception
// name in the X-Amzn-ErrorType header so the AWS SDK decodes them as typed errors.
package oidctest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// Exception names returned in X-Amzn-ErrorType
const (
	AuthorizationPending = "AuthorizationPendingException"
	SlowDown             = "SlowDownException"
	InvalidClient        = "InvalidClientException"
	InvalidGrant         = "InvalidGrantException"
	InvalidRequest       = "InvalidRequestException"
	ExpiredToken         = "ExpiredTokenException"
	AccessDenied         = "AccessDeniedException"
)

// DeviceState is the next answer the token endpoint gives for a device code
type DeviceState int

const (
	StatePending DeviceState = iota
	StateSlowDown
	StateApproved
	StateDenied
	StateExpired
)

type device struct {
	clientID string
	startURL string
	states   []DeviceState
}

// Server is a scriptable SSO OIDC server
type Server struct {
	*httptest.Server

	mu sync.Mutex
	// ClientTTL is the lifetime of registered client secrets
	ClientTTL time.Duration
	// TokenTTL is the lifetime of issued access tokens
	TokenTTL time.Duration
	// Interval is sent with device authorizations; zero omits it
	Interval int32
	// States are consumed by successive token requests for a device code; the last repeats
	States []DeviceState
	// IssueRefreshTokens controls whether tokens come with a refresh token
	IssueRefreshTokens bool

	clients       map[string]string
	devices       map[string]*device
	refreshTokens map[string]string
	registrations int
	tokenRequests int
}

// NewServer starts a Server that approves on the first token request
func NewServer() *Server {
	s := &Server{
		ClientTTL:          90 * 24 * time.Hour,
		TokenTTL:           time.Hour,
		Interval:           1,
		States:             []DeviceState{StateApproved},
		IssueRefreshTokens: true,
		clients:            make(map[string]string),
		devices:            make(map[string]*device),
		refreshTokens:      make(map[string]string),
	}

	r := chi.NewRouter()
	r.Post("/client/register", s.handleRegister)
	r.Post("/device_authorization", s.handleDeviceAuthorization)
	r.Post("/token", s.handleToken)

	s.Server = httptest.NewServer(r)
	return s
}

// Registrations returns how many clients were registered
func (s *Server) Registrations() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.registrations
}

// TokenRequests returns how many token requests were received
func (s *Server) TokenRequests() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tokenRequests
}

// SetStates replaces the script used for new device authorizations
func (s *Server) SetStates(states ...DeviceState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.States = states
}

// ForgetClients drops every registered client, so their next use is an invalid_client error
func (s *Server) ForgetClients() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clients = make(map[string]string)
}

// RevokeRefreshTokens makes every issued refresh token invalid
func (s *Server) RevokeRefreshTokens() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refreshTokens = make(map[string]string)
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ClientName string   `json:"clientName"`
		ClientType string   `json:"clientType"`
		Scopes     []string `json:"scopes"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ClientName == "" || req.ClientType == "" {
		writeError(w, InvalidRequest, "clientName and clientType are required")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.registrations++
	id := uuid.NewString()
	secret := uuid.NewString()
	s.clients[id] = secret

	now := time.Now()
	writeJSON(w, map[string]interface{}{
		"clientId":              id,
		"clientSecret":          secret,
		"clientIdIssuedAt":      now.Unix(),
		"clientSecretExpiresAt": now.Add(s.ClientTTL).Unix(),
	})
}

func (s *Server) handleDeviceAuthorization(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ClientID     string `json:"clientId"`
		ClientSecret string `json:"clientSecret"`
		StartURL     string `json:"startUrl"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.StartURL == "" {
		writeError(w, InvalidRequest, "startUrl is required")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.validClient(req.ClientID, req.ClientSecret) {
		writeError(w, InvalidClient, "unknown client")
		return
	}

	code := uuid.NewString()
	userCode := fmt.Sprintf("%04X-%04X", len(s.devices)+1, time.Now().Unix()&0xffff)
	s.devices[code] = &device{
		clientID: req.ClientID,
		startURL: req.StartURL,
		states:   append([]DeviceState(nil), s.States...),
	}

	resp := map[string]interface{}{
		"deviceCode":              code,
		"userCode":                userCode,
		"verificationUri":         s.URL + "/device",
		"verificationUriComplete": s.URL + "/device?user_code=" + userCode,
		"expiresIn":               600,
	}
	if s.Interval > 0 {
		resp["interval"] = s.Interval
	}
	writeJSON(w, resp)
}

func (s *Server) handleToken(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ClientID     string `json:"clientId"`
		ClientSecret string `json:"clientSecret"`
		GrantType    string `json:"grantType"`
		DeviceCode   string `json:"deviceCode"`
		RefreshToken string `json:"refreshToken"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, InvalidRequest, "malformed body")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.tokenRequests++
	if !s.validClient(req.ClientID, req.ClientSecret) {
		writeError(w, InvalidClient, "unknown client")
		return
	}

	switch req.GrantType {
	case "urn:ietf:params:oauth:grant-type:device_code":
		s.exchangeDeviceCode(w, req.ClientID, req.DeviceCode)
	case "refresh_token":
		owner, ok := s.refreshTokens[req.RefreshToken]
		if !ok || owner != req.ClientID {
			writeError(w, InvalidGrant, "refresh token is invalid")
			return
		}
		delete(s.refreshTokens, req.RefreshToken)
		s.issue(w, req.ClientID)
	default:
		writeError(w, InvalidRequest, "unsupported grant type")
	}
}

func (s *Server) exchangeDeviceCode(w http.ResponseWriter, clientID, code string) {
	dev, ok := s.devices[code]
	if !ok || dev.clientID != clientID {
		writeError(w, InvalidGrant, "unknown device code")
		return
	}

	state := StateApproved
	if len(dev.states) > 0 {
		state = dev.states[0]
	}
	if len(dev.states) > 1 {
		dev.states = dev.states[1:]
	}

	switch state {
	case StatePending:
		writeError(w, AuthorizationPending, "")
	case StateSlowDown:
		writeError(w, SlowDown, "")
	case StateDenied:
		delete(s.devices, code)
		writeError(w, AccessDenied, "user denied the request")
	case StateExpired:
		delete(s.devices, code)
		writeError(w, ExpiredToken, "device code expired")
	default:
		delete(s.devices, code)
		s.issue(w, clientID)
	}
}

func (s *Server) issue(w http.ResponseWriter, clientID string) {
	resp := map[string]interface{}{
		"accessToken": "at-" + uuid.NewString(),
		"tokenType":   "Bearer",
		"expiresIn":   int32(s.TokenTTL / time.Second),
	}
	if s.IssueRefreshTokens {
		rt := "rt-" + uuid.NewString()
		s.refreshTokens[rt] = clientID
		resp["refreshToken"] = rt
	}
	writeJSON(w, resp)
}

func (s *Server) validClient(id, secret string) bool {
	want, ok := s.clients[id]
	return ok && want == secret
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, exception, description string) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Amzn-ErrorType", exception)
	status := http.StatusBadRequest
	if exception == InvalidClient {
		status = http.StatusUnauthorized
	}
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error":             exception,
		"error_description": description,
		"message":           description,
	})
}
