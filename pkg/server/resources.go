package server

import (
	"context"
	"net/http"
	"net/url"

	"github.com/ItIsGreg/Raki-sub002/pkg/api"
	"github.com/ItIsGreg/Raki-sub002/pkg/models"
	"github.com/gorilla/mux"
)

// resource holds the handlers of one entity collection.
type resource struct {
	entity models.EntityType
	// alias also serves the collection under /data/{segment} for the
	// default workspace
	alias bool

	list, create, get, update, delete http.HandlerFunc
}

type entityOps[T any, ID any] struct {
	entity models.EntityType
	parse  func(string) (ID, error)
	// bind forces the workspace and id taken from the route onto a payload
	bind   func(v *T, ws models.WorkspaceID, id ID)
	create func(context.Context, *T) error
	get    func(context.Context, models.WorkspaceID, ID) (*T, error)
	update func(context.Context, *T) error
	remove func(context.Context, models.WorkspaceID, ID) error
	list   func(context.Context, models.WorkspaceID, url.Values) ([]T, error)
}

func newResource[T any, ID any](s *Server, ops entityOps[T, ID], alias bool) resource {
	routeID := func(w http.ResponseWriter, r *http.Request) (ID, bool) {
		id, err := ops.parse(mux.Vars(r)["id"])
		if err != nil {
			respondError(w, http.StatusNotFound, string(ops.entity)+" not found")
			return id, false
		}
		return id, true
	}

	return resource{
		entity: ops.entity,
		alias:  alias,
		list: func(w http.ResponseWriter, r *http.Request) {
			items, err := ops.list(r.Context(), workspaceFrom(r).ID, r.URL.Query())
			if err != nil {
				respondStoreError(w, s.log, err)
				return
			}
			respondJSON(w, http.StatusOK, items)
		},
		create: func(w http.ResponseWriter, r *http.Request) {
			var v T
			if !decode(w, r, &v) {
				return
			}
			var fresh ID
			ops.bind(&v, workspaceFrom(r).ID, fresh)
			if err := ops.create(r.Context(), &v); err != nil {
				respondStoreError(w, s.log, err)
				return
			}
			respondJSON(w, http.StatusCreated, v)
		},
		get: func(w http.ResponseWriter, r *http.Request) {
			id, ok := routeID(w, r)
			if !ok {
				return
			}
			v, err := ops.get(r.Context(), workspaceFrom(r).ID, id)
			if err != nil {
				respondStoreError(w, s.log, err)
				return
			}
			respondJSON(w, http.StatusOK, v)
		},
		update: func(w http.ResponseWriter, r *http.Request) {
			id, ok := routeID(w, r)
			if !ok {
				return
			}
			var v T
			if !decode(w, r, &v) {
				return
			}
			ws := workspaceFrom(r).ID
			ops.bind(&v, ws, id)
			if err := ops.update(r.Context(), &v); err != nil {
				respondStoreError(w, s.log, err)
				return
			}
			stored, err := ops.get(r.Context(), ws, id)
			if err != nil {
				respondStoreError(w, s.log, err)
				return
			}
			respondJSON(w, http.StatusOK, stored)
		},
		delete: func(w http.ResponseWriter, r *http.Request) {
			id, ok := routeID(w, r)
			if !ok {
				return
			}
			if err := ops.remove(r.Context(), workspaceFrom(r).ID, id); err != nil {
				respondStoreError(w, s.log, err)
				return
			}
			respondJSON(w, http.StatusNoContent, nil)
		},
	}
}

// parentFilter parses the optional parent query parameter of a child
// collection. An absent filter is the zero id.
func parentFilter[P any](q url.Values, entity models.EntityType, parse func(string) (P, error)) (P, error) {
	var zero P
	key := api.ParentFilter(entity)
	raw := q.Get(key)
	if raw == "" {
		return zero, nil
	}
	p, err := parse(raw)
	if err != nil {
		return zero, models.Invalid(entity, key+": "+err.Error()).AsError()
	}
	return p, nil
}

func modeFilter(q url.Values, entity models.EntityType) (models.Mode, error) {
	mode, err := models.ParseMode(q.Get(api.ModeFilter))
	if err != nil {
		return "", models.Invalid(entity, api.ModeFilter+": "+err.Error()).AsError()
	}
	return mode, nil
}

func (s *Server) resources() []resource {
	st := s.store
	return []resource{
		newResource(s, entityOps[models.Profile, models.ProfileID]{
			entity: models.EntityProfile,
			parse:  models.ParseProfileID,
			bind: func(v *models.Profile, ws models.WorkspaceID, id models.ProfileID) {
				v.WorkspaceID, v.ID = ws, id
			},
			create: st.CreateProfile,
			get:    st.GetProfile,
			update: st.UpdateProfile,
			remove: st.DeleteProfile,
			list: func(ctx context.Context, ws models.WorkspaceID, q url.Values) ([]models.Profile, error) {
				mode, err := modeFilter(q, models.EntityProfile)
				if err != nil {
					return nil, err
				}
				return st.ListProfilesByMode(ctx, ws, mode)
			},
		}, true),

		newResource(s, entityOps[models.ProfilePoint, models.ProfilePointID]{
			entity: models.EntityProfilePoint,
			parse:  models.ParseProfilePointID,
			bind: func(v *models.ProfilePoint, ws models.WorkspaceID, id models.ProfilePointID) {
				v.WorkspaceID, v.ID = ws, id
			},
			create: st.CreateProfilePoint,
			get:    st.GetProfilePoint,
			update: st.UpdateProfilePoint,
			remove: st.DeleteProfilePoint,
			list: func(ctx context.Context, ws models.WorkspaceID, q url.Values) ([]models.ProfilePoint, error) {
				profile, err := parentFilter(q, models.EntityProfilePoint, models.ParseProfileID)
				if err != nil {
					return nil, err
				}
				return st.ListProfilePoints(ctx, ws, profile)
			},
		}, false),

		newResource(s, entityOps[models.Dataset, models.DatasetID]{
			entity: models.EntityDataset,
			parse:  models.ParseDatasetID,
			bind: func(v *models.Dataset, ws models.WorkspaceID, id models.DatasetID) {
				v.WorkspaceID, v.ID = ws, id
			},
			create: st.CreateDataset,
			get:    st.GetDataset,
			update: st.UpdateDataset,
			remove: st.DeleteDataset,
			list: func(ctx context.Context, ws models.WorkspaceID, q url.Values) ([]models.Dataset, error) {
				mode, err := modeFilter(q, models.EntityDataset)
				if err != nil {
					return nil, err
				}
				return st.ListDatasetsByMode(ctx, ws, mode)
			},
		}, true),

		newResource(s, entityOps[models.Text, models.TextID]{
			entity: models.EntityText,
			parse:  models.ParseTextID,
			bind: func(v *models.Text, ws models.WorkspaceID, id models.TextID) {
				v.WorkspaceID, v.ID = ws, id
			},
			create: st.CreateText,
			get:    st.GetText,
			update: st.UpdateText,
			remove: st.DeleteText,
			list: func(ctx context.Context, ws models.WorkspaceID, q url.Values) ([]models.Text, error) {
				dataset, err := parentFilter(q, models.EntityText, models.ParseDatasetID)
				if err != nil {
					return nil, err
				}
				return st.ListTexts(ctx, ws, dataset)
			},
		}, false),

		newResource(s, entityOps[models.AnnotatedDataset, models.AnnotatedDatasetID]{
			entity: models.EntityAnnotatedDataset,
			parse:  models.ParseAnnotatedDatasetID,
			bind: func(v *models.AnnotatedDataset, ws models.WorkspaceID, id models.AnnotatedDatasetID) {
				v.WorkspaceID, v.ID = ws, id
			},
			create: st.CreateAnnotatedDataset,
			get:    st.GetAnnotatedDataset,
			update: st.UpdateAnnotatedDataset,
			remove: st.DeleteAnnotatedDataset,
			list: func(ctx context.Context, ws models.WorkspaceID, _ url.Values) ([]models.AnnotatedDataset, error) {
				return st.ListAnnotatedDatasets(ctx, ws)
			},
		}, false),

		newResource(s, entityOps[models.AnnotatedText, models.AnnotatedTextID]{
			entity: models.EntityAnnotatedText,
			parse:  models.ParseAnnotatedTextID,
			bind: func(v *models.AnnotatedText, ws models.WorkspaceID, id models.AnnotatedTextID) {
				v.WorkspaceID, v.ID = ws, id
			},
			create: st.CreateAnnotatedText,
			get:    st.GetAnnotatedText,
			update: st.UpdateAnnotatedText,
			remove: st.DeleteAnnotatedText,
			list: func(ctx context.Context, ws models.WorkspaceID, q url.Values) ([]models.AnnotatedText, error) {
				ad, err := parentFilter(q, models.EntityAnnotatedText, models.ParseAnnotatedDatasetID)
				if err != nil {
					return nil, err
				}
				return st.ListAnnotatedTexts(ctx, ws, ad)
			},
		}, false),

		newResource(s, entityOps[models.DataPoint, models.DataPointID]{
			entity: models.EntityDataPoint,
			parse:  models.ParseDataPointID,
			bind: func(v *models.DataPoint, ws models.WorkspaceID, id models.DataPointID) {
				v.WorkspaceID, v.ID = ws, id
			},
			create: st.CreateDataPoint,
			get:    st.GetDataPoint,
			update: st.UpdateDataPoint,
			remove: st.DeleteDataPoint,
			list: func(ctx context.Context, ws models.WorkspaceID, q url.Values) ([]models.DataPoint, error) {
				at, err := parentFilter(q, models.EntityDataPoint, models.ParseAnnotatedTextID)
				if err != nil {
					return nil, err
				}
				return st.ListDataPoints(ctx, ws, at)
			},
		}, false),
	}
}
