package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/cuongvd6868/workspace-chat/internal"
)

// openStore returns the session store selected by --ephemeral/--store and a
// function that releases it.
func openStore() (internal.SessionStore, func(), error) {
	if ephemeral {
		internal.LogDebug("Using in-memory session store")
		return internal.NewMemorySessionStore(), func() {}, nil
	}

	db, err := internal.OpenDatabase(cfg.StorePath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open session store: %w", err)
	}
	closeDB := func() {
		if err := db.Close(); err != nil {
			internal.LogWarn("Failed to close session store: %v", err)
		}
	}
	return internal.NewSQLiteSessionStore(db), closeDB, nil
}

func newClient() (*internal.Client, error) {
	return internal.NewClient(internal.ClientOptions{
		BaseURL:          cfg.APIURL,
		Token:            cfg.Token,
		Timeout:          cfg.RequestTimeout,
		HTTPClient:       &http.Client{},
		MaxResponseBytes: cfg.MaxResponseBytes,
		OnUnauthorized: func() {
			internal.PrintError("Your sign-in has expired. Update the token and try again.")
		},
	})
}

func selectedChannel() (internal.Channel, error) {
	return internal.LookupChannel(channelName)
}

func requireWorkspace() error {
	if workspaceID <= 0 {
		return errors.New("a workspace id is required (--workspace)")
	}
	return nil
}

func newDetector() internal.ChangeDetector {
	d, err := internal.NewChangeDetector(cfg.ChangeDetection)
	if err != nil {
		// Validate already rejected unknown names.
		return internal.LastIDDetector{}
	}
	return d
}

// resolveSessionID picks the explicit --session value, falling back to the
// session stored for the channel and workspace.
func resolveSessionID(ctx context.Context, store internal.SessionStore, ch internal.Channel, explicit string) (string, error) {
	if explicit != "" {
		return explicit, nil
	}
	if err := requireWorkspace(); err != nil {
		return "", err
	}
	id, ok, err := store.Load(ctx, ch.Name, workspaceID)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", fmt.Errorf("no %s conversation stored for workspace %d: %w", ch.Name, workspaceID, internal.ErrNoSession)
	}
	return id, nil
}
