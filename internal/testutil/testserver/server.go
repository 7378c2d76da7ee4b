// Package testserver runs the complete REST backend on httptest for
// client-side tests.
package testserver

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/starford/tasknote/internal/api"
	"github.com/starford/tasknote/internal/auth"
	"github.com/starford/tasknote/internal/repo"
	"github.com/starford/tasknote/internal/sse"
	"github.com/starford/tasknote/internal/taskservice"
	"github.com/starford/tasknote/internal/testutil"
)

// Password is the password SignIn registers accounts with.
const Password = "secret1"

// Server is a running backend. Days are bucketed in UTC.
type Server struct {
	// URL is the API root, suitable for client.New.
	URL    string
	DB     *repo.DB
	Auth   *auth.Service
	Events *sse.Broker
}

// New starts a backend that is shut down when the test ends.
func New(t *testing.T) *Server {
	t.Helper()
	db := testutil.TestDB(t)
	broker := sse.NewBroker(time.Second)
	t.Cleanup(broker.Close)
	authSvc := auth.NewService(db, "TaskNote", time.Hour)

	srv := httptest.NewServer(api.NewServer(api.Deps{
		Tasks:   taskservice.NewService(db, taskservice.WithPublisher(broker), taskservice.WithLocation(time.UTC)),
		Auth:    authSvc,
		Uploads: testutil.TestUploads(t),
		Events:  broker,
		Ready:   db.Ping,
	}))
	t.Cleanup(srv.Close)

	return &Server{URL: srv.URL + "/api", DB: db, Auth: authSvc, Events: broker}
}

// SignIn registers username with Password and returns a session token.
func (s *Server) SignIn(t *testing.T, username string) string {
	t.Helper()
	ctx := context.Background()
	if err := s.Auth.Register(ctx, username, Password); err != nil {
		t.Fatalf("register %s: %v", username, err)
	}
	res, err := s.Auth.Login(ctx, username, Password, "")
	if err != nil {
		t.Fatalf("login %s: %v", username, err)
	}
	return res.Token
}
