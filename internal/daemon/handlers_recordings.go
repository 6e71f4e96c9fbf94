package daemon

import (
	"encoding/json"
	"mime"
	"net/http"
	"strings"

	"svoextract/internal/api"
	"svoextract/internal/framesource"
	"svoextract/internal/logging"
	"svoextract/internal/preview"
	"svoextract/internal/services"
)

type addRecordingRequest struct {
	Path string `json:"path"`
}

func (s *apiServer) handleListRecordings(w http.ResponseWriter, r *http.Request) {
	recs, err := s.daemon.recordings.List(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.RecordingListResponse{Recordings: recs})
}

func (s *apiServer) handleGetRecording(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid recording id")
		return
	}
	rec, err := s.daemon.recordings.Get(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, rec)
}

// handleAddRecording accepts either a multipart upload in the "file" field or
// a JSON body naming a path readable by the daemon.
func (s *apiServer) handleAddRecording(w http.ResponseWriter, r *http.Request) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		reader, err := r.MultipartReader()
		if err != nil {
			s.writeError(w, http.StatusBadRequest, "invalid multipart body: "+err.Error())
			return
		}
		for {
			part, err := reader.NextPart()
			if err != nil {
				s.writeError(w, http.StatusBadRequest, "multipart body has no file field")
				return
			}
			if part.FormName() != "file" {
				_ = part.Close()
				continue
			}
			rec, err := s.daemon.recordings.Store(r.Context(), part.FileName(), part)
			_ = part.Close()
			if err != nil {
				s.writeServiceError(w, r, err)
				return
			}
			s.writeJSON(w, http.StatusCreated, rec)
			return
		}
	}

	var req addRecordingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Path) == "" {
		s.writeError(w, http.StatusBadRequest, "expected a multipart file upload or a JSON body with a path")
		return
	}
	rec, err := s.daemon.recordings.AddFile(r.Context(), req.Path)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, rec)
}

func (s *apiServer) recordingPath(w http.ResponseWriter, r *http.Request) (string, bool) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid recording id")
		return "", false
	}
	rec, err := s.daemon.recordings.Get(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, r, err)
		return "", false
	}
	return rec.Path, true
}

func (s *apiServer) handlePreviewInfo(w http.ResponseWriter, r *http.Request) {
	path, ok := s.recordingPath(w, r)
	if !ok {
		return
	}
	result := s.daemon.preview.Info(r.Context(), path)
	s.writeJSON(w, previewStatus(result.OK, result.Error), result)
}

func (s *apiServer) handlePreviewFrame(w http.ResponseWriter, r *http.Request) {
	path, ok := s.recordingPath(w, r)
	if !ok {
		return
	}
	frame, err := queryInt(r, "frame", 0)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	view, err := preview.ParseView(r.URL.Query().Get("view"))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	modeName := r.URL.Query().Get("depth_mode")
	if strings.TrimSpace(modeName) == "" {
		modeName = s.daemon.cfg.Extraction.DepthMode
	}
	mode, err := framesource.ParseDepthMode(modeName)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	result := s.daemon.preview.Frame(r.Context(), path, frame, view, mode)
	s.daemon.metrics.PreviewServed(string(view), result.OK)
	s.writeFrame(w, r, result)
}

func (s *apiServer) handlePreviewThumbnail(w http.ResponseWriter, r *http.Request) {
	path, ok := s.recordingPath(w, r)
	if !ok {
		return
	}
	result := s.daemon.preview.Thumbnail(r.Context(), path)
	s.daemon.metrics.PreviewServed("thumbnail", result.OK)
	s.writeFrame(w, r, result)
}

func (s *apiServer) handlePreviewInertial(w http.ResponseWriter, r *http.Request) {
	path, ok := s.recordingPath(w, r)
	if !ok {
		return
	}
	frame, err := queryInt(r, "frame", 0)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	result := s.daemon.preview.Inertial(r.Context(), path, frame)
	s.writeJSON(w, previewStatus(result.OK, result.Error), result)
}

// writeFrame returns the JPEG itself unless format=json asks for the tagged
// result with its data URI.
func (s *apiServer) writeFrame(w http.ResponseWriter, r *http.Request, result preview.FrameResult) {
	if !result.OK || strings.EqualFold(r.URL.Query().Get("format"), "json") {
		s.writeJSON(w, previewStatus(result.OK, result.Error), result)
		return
	}
	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(result.JPEG); err != nil {
		s.logger.Debug("preview write failed", logging.Error(err))
	}
}

func previewStatus(ok bool, info *preview.ErrorInfo) int {
	if ok {
		return http.StatusOK
	}
	if info == nil {
		return http.StatusInternalServerError
	}
	switch info.Kind {
	case services.KindNotFound:
		return http.StatusNotFound
	case services.KindUnavailable:
		return http.StatusUnprocessableEntity
	case services.KindOpenFailed:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func backendNames() []string {
	return framesource.Backends()
}
