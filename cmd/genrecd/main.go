/*
Genrecd is an optional HTTP grammar analysis service: it exposes the same
internal/genrec engine the genrec CLI uses, behind a small authenticated
REST API, and records a history of submissions in a local SQLite database.

This supplements, rather than replaces, batch CLI usage; every endpoint
below calls the exact same internal/genrec/... packages cmd/genrec does.

Grounded on the teacher's server/ package: JWT bearer-token auth
(server/token.go), a bcrypt-hashed credential check (server/tunas/users.go),
and a modernc.org/sqlite-backed DAO (server/dao/sqlite/sqlite.go),
generalized from "tunaq game API" to "grammar analysis API" and rebuilt on
top of github.com/go-chi/chi/v5 for routing.
*/
package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/dekarrin/genrec/internal/genrec/gramlex"
	"github.com/dekarrin/genrec/internal/genrec/grammar"
	"github.com/dekarrin/genrec/internal/genrec/lextarget"
	"github.com/dekarrin/genrec/internal/genrec/setengine"
)

const progName = "genrecd"

func main() {
	addr := os.Getenv("GENRECD_ADDR")
	if addr == "" {
		addr = ":8080"
	}
	dbPath := os.Getenv("GENRECD_DB")
	if dbPath == "" {
		dbPath = "genrecd.db"
	}
	secret := []byte(os.Getenv("GENRECD_JWT_SECRET"))
	if len(secret) == 0 {
		secret = []byte("dev-only-secret-change-me")
	}
	apiKeyHash := os.Getenv("GENRECD_API_KEY_HASH")
	if apiKeyHash == "" {
		// Placeholder, not a well-formed bcrypt hash: no API key matches
		// it, so /api/v1/login rejects every key until
		// GENRECD_API_KEY_HASH is set.
		apiKeyHash = "$2a$10$6x3z5Vb0qz0f9Z0b0zV3C.examplehashvalueonly0000000000000"
	}

	store, err := newHistoryStore(dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: error: %v\n", progName, err)
		os.Exit(1)
	}
	defer store.Close()

	srv := &service{secret: secret, apiKeyHash: apiKeyHash, store: store}

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Post("/api/v1/login", srv.handleLogin)

	r.Group(func(r chi.Router) {
		r.Use(srv.requireAuth)
		r.Post("/api/v1/grammars/analyze", srv.handleAnalyze)
		r.Get("/api/v1/history", srv.handleHistory)
	})

	fmt.Printf("%s: listening on %s\n", progName, addr)
	if err := http.ListenAndServe(addr, r); err != nil {
		fmt.Fprintf(os.Stderr, "%s: error: %v\n", progName, err)
		os.Exit(1)
	}
}

type service struct {
	secret     []byte
	apiKeyHash string
	store      *historyStore
}

type loginRequest struct {
	APIKey string `json:"api_key"`
}

type loginResponse struct {
	Token string `json:"token"`
}

func (s *service) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	if bcrypt.CompareHashAndPassword([]byte(s.apiKeyHash), []byte(req.APIKey)) != nil {
		writeError(w, http.StatusUnauthorized, "invalid api key")
		return
	}

	claims := jwt.MapClaims{
		"iss": progName,
		"sub": "api-client",
		"exp": time.Now().Add(time.Hour).Unix(),
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokStr, err := tok.SignedString(s.secret)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to sign token")
		return
	}

	writeJSON(w, http.StatusOK, loginResponse{Token: tokStr})
}

func (s *service) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
			writeError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}

		_, err := jwt.Parse(parts[1], func(t *jwt.Token) (interface{}, error) {
			return s.secret, nil
		})
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid token")
			return
		}

		next.ServeHTTP(w, r)
	})
}

type analyzeRequest struct {
	Grammar string `json:"grammar"`
	Check   bool   `json:"check"`
}

type analyzeResponse struct {
	RequestID string   `json:"request_id"`
	First     []string `json:"first"`
	Follow    []string `json:"follow"`
	Conflicts []string `json:"conflicts,omitempty"`
}

func (s *service) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	reqID := uuid.New().String()

	target := lextarget.NewToy(strings.NewReader(""))
	parser := grammar.NewParser(gramlex.New(strings.NewReader(req.Grammar)), target)
	reg, err := parser.Parse()
	if err != nil {
		s.store.record(reqID, req.Grammar, "parse-error: "+err.Error())
		writeError(w, http.StatusBadRequest, "grammar parse error: "+err.Error())
		return
	}

	if err := setengine.Compute(reg); err != nil {
		s.store.record(reqID, req.Grammar, "analysis-error: "+err.Error())
		writeError(w, http.StatusBadRequest, "analysis error: "+err.Error())
		return
	}

	resp := analyzeResponse{RequestID: reqID}
	for _, rule := range reg.Rules() {
		resp.First = append(resp.First, fmt.Sprintf("FIRST(%s) = %s", rule.Name, rule.FirstSet))
		resp.Follow = append(resp.Follow, fmt.Sprintf("FOLLOW(%s) = %s", rule.Name, rule.Follow))
	}

	if req.Check {
		if reg.Len() <= 64 {
			if err := setengine.CheckLeftRecursion(reg); err != nil {
				resp.Conflicts = append(resp.Conflicts, err.Error())
			}
		}
		for _, c := range setengine.CheckConflicts(reg) {
			resp.Conflicts = append(resp.Conflicts, c.Render(target))
		}
	}

	verdict := "ok"
	if len(resp.Conflicts) > 0 {
		verdict = "conflicts"
	}
	s.store.record(reqID, req.Grammar, verdict)

	writeJSON(w, http.StatusOK, resp)
}

func (s *service) handleHistory(w http.ResponseWriter, r *http.Request) {
	entries, err := s.store.list(50)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
