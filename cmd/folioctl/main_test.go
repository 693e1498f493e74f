// Copyright (c) 2026 Folio. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package main

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/folio/internal/platform/apperr"
	"github.com/taibuivan/folio/internal/users/auth"
)

type stubCreator struct {
	err   error
	input auth.Credentials
}

func (creator *stubCreator) CreateUser(_ context.Context, input auth.Credentials) (*auth.User, error) {
	creator.input = input
	if creator.err != nil {
		return nil, creator.err
	}
	return &auth.User{ID: 1, Username: input.Username}, nil
}

/*
TestRootCmd_Tree registers every operator command.
*/
func TestRootCmd_Tree(t *testing.T) {
	root := newRootCmd()

	for _, path := range [][]string{
		{"migrate", "up"},
		{"migrate", "down"},
		{"migrate", "status"},
		{"users", "create"},
		{"sessions", "sweep"},
		{"whoami"},
		{"version"},
	} {
		cmd, _, err := root.Find(path)
		require.NoError(t, err, path)
		assert.Equal(t, path[len(path)-1], cmd.Name())
	}
}

/*
TestResolvePassword prefers the flag over the environment.
*/
func TestResolvePassword(t *testing.T) {
	password, err := resolvePassword("from-flag", "from-env")
	require.NoError(t, err)
	assert.Equal(t, "from-flag", password)

	password, err = resolvePassword("", "from-env")
	require.NoError(t, err)
	assert.Equal(t, "from-env", password)

	_, err = resolvePassword("", "")
	assert.ErrorContains(t, err, adminPasswordEnv)
}

/*
TestCreateAdmin reports an existing user without failing.
*/
func TestCreateAdmin(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantErr    bool
		wantOutput string
	}{
		{"created", nil, false, `Created admin "admin" (id 1)`},
		{"already_exists", auth.ErrUsernameTaken, false, `User "admin" already exists`},
		{"validation", apperr.ValidationError("Password must be at least 8 characters long"), true, ""},
		{"store_down", errors.New("connection refused"), true, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			creator := &stubCreator{err: tt.err}
			var out bytes.Buffer

			err := createAdmin(context.Background(), creator, "admin", "correct-pw", &out)

			assert.Equal(t, tt.wantErr, err != nil)
			assert.Contains(t, out.String(), tt.wantOutput)
			assert.Equal(t, auth.Credentials{Username: "admin", Password: "correct-pw"}, creator.input)
		})
	}
}

/*
TestWhoami exits non-zero unless the server confirms the session.
*/
func TestWhoami(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		if cookie, err := request.Cookie(auth.SessionCookieName); err == nil && cookie.Value == "live" {
			_, _ = writer.Write([]byte(`{"authenticated":true,"user":{"id":1,"username":"admin"}}`))
			return
		}
		_, _ = writer.Write([]byte(`{"authenticated":false}`))
	}))
	t.Cleanup(server.Close)

	run := func(token string) (string, error) {
		root := newRootCmd()
		var out bytes.Buffer
		root.SetOut(&out)
		root.SetErr(&out)
		root.SetArgs([]string{"whoami", "--url", server.URL, "--token", token})
		err := root.Execute()
		return out.String(), err
	}

	output, err := run("live")
	require.NoError(t, err)
	assert.Contains(t, output, `Authenticated as "admin" (id 1)`)

	output, err = run("dead")
	assert.ErrorIs(t, err, errNotAuthenticated)
	assert.Contains(t, output, "Not authenticated")
}
