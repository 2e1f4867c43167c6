package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/ItIsGreg/Raki-sub002/pkg/constants"
	"github.com/ItIsGreg/Raki-sub002/pkg/models"
	"github.com/gorilla/mux"
	"github.com/patrickmn/go-cache"
)

type workspaceKey struct{}

// authorize loads the workspace and checks that the user owns it.
func (s *Server) authorize(ctx context.Context, user *models.User, raw string) (*models.Workspace, int, string) {
	id, err := models.ParseWorkspaceID(raw)
	if err != nil {
		return nil, http.StatusNotFound, "Workspace not found"
	}
	ws, err := s.store.GetWorkspace(ctx, id)
	if errors.Is(err, constants.ErrNotFound) {
		return nil, http.StatusNotFound, "Workspace not found"
	}
	if err != nil {
		return nil, http.StatusInternalServerError, err.Error()
	}
	if ws.OwnerID != user.ID {
		return nil, http.StatusForbidden, "Not enough permissions"
	}
	s.owners.Set(ws.ID.String(), ws.OwnerID, cache.DefaultExpiration)
	return ws, 0, ""
}

// inWorkspace resolves the {ws} route variable to a workspace the caller
// owns.
func (s *Server) inWorkspace(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ws, status, msg := s.authorize(r.Context(), userFrom(r), mux.Vars(r)["ws"])
		if ws == nil {
			respondError(w, status, msg)
			return
		}
		next(w, r.WithContext(context.WithValue(r.Context(), workspaceKey{}, ws)))
	}
}

// inDefaultWorkspace resolves to the caller's default workspace, falling
// back to the oldest one.
func (s *Server) inDefaultWorkspace(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		workspaces, err := s.store.ListWorkspaces(r.Context(), userFrom(r).ID)
		if err != nil {
			respondStoreError(w, s.log, err)
			return
		}
		if len(workspaces) == 0 {
			respondError(w, http.StatusNotFound, "No workspace")
			return
		}
		ws := workspaces[0]
		for _, candidate := range workspaces {
			if candidate.IsDefault {
				ws = candidate
				break
			}
		}
		next(w, r.WithContext(context.WithValue(r.Context(), workspaceKey{}, &ws)))
	}
}

func workspaceFrom(r *http.Request) *models.Workspace {
	ws, _ := r.Context().Value(workspaceKey{}).(*models.Workspace)
	return ws
}

// Workspace handlers

func (s *Server) handleListWorkspaces(w http.ResponseWriter, r *http.Request) {
	workspaces, err := s.store.ListWorkspaces(r.Context(), userFrom(r).ID)
	if err != nil {
		respondStoreError(w, s.log, err)
		return
	}
	respondJSON(w, http.StatusOK, workspaces)
}

func (s *Server) handleCreateWorkspace(w http.ResponseWriter, r *http.Request) {
	var ws models.Workspace
	if !decode(w, r, &ws) {
		return
	}
	ws.ID = models.WorkspaceID{}
	ws.StorageType = models.StorageCloud
	ws.OwnerID = userFrom(r).ID
	if err := s.store.CreateWorkspace(r.Context(), &ws); err != nil {
		respondStoreError(w, s.log, err)
		return
	}
	s.owners.Set(ws.ID.String(), ws.OwnerID, cache.DefaultExpiration)
	respondJSON(w, http.StatusCreated, ws)
}

func (s *Server) handleGetWorkspace(w http.ResponseWriter, r *http.Request) {
	ws, status, msg := s.authorize(r.Context(), userFrom(r), mux.Vars(r)["ws"])
	if ws == nil {
		respondError(w, status, msg)
		return
	}
	respondJSON(w, http.StatusOK, ws)
}

func (s *Server) handleUpdateWorkspace(w http.ResponseWriter, r *http.Request) {
	existing, status, msg := s.authorize(r.Context(), userFrom(r), mux.Vars(r)["ws"])
	if existing == nil {
		respondError(w, status, msg)
		return
	}
	var ws models.Workspace
	if !decode(w, r, &ws) {
		return
	}
	ws.ID, ws.OwnerID, ws.StorageType = existing.ID, existing.OwnerID, existing.StorageType
	if err := s.store.UpdateWorkspace(r.Context(), &ws); err != nil {
		respondStoreError(w, s.log, err)
		return
	}
	updated, err := s.store.GetWorkspace(r.Context(), ws.ID)
	if err != nil {
		respondStoreError(w, s.log, err)
		return
	}
	respondJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDeleteWorkspace(w http.ResponseWriter, r *http.Request) {
	ws, status, msg := s.authorize(r.Context(), userFrom(r), mux.Vars(r)["ws"])
	if ws == nil {
		respondError(w, status, msg)
		return
	}
	if err := s.store.DeleteWorkspace(r.Context(), ws.ID); err != nil {
		respondStoreError(w, s.log, err)
		return
	}
	respondJSON(w, http.StatusNoContent, nil)
}
