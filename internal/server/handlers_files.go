package server

import (
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
)

const maxUploadSize = 64 << 20 // 64 MiB

type UploadResponse struct {
	Name string `json:"name"`
	Path string `json:"path"`
	Size int64  `json:"size"`
}

func (s *Server) uploadFileHandler(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		jsonError(w, "invalid multipart body", http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		jsonError(w, "file field required", http.StatusBadRequest)
		return
	}
	defer file.Close()

	saved, err := s.files.Save(header.Filename, file)
	if err != nil {
		s.serviceError(w, err)
		return
	}

	jsonResponse(w, UploadResponse{
		Name: saved.Name,
		Path: saved.Path,
		Size: saved.Size,
	}, http.StatusCreated)
}

func (s *Server) serveFileHandler(w http.ResponseWriter, r *http.Request) {
	path := "/files/" + chi.URLParam(r, "*")
	f, err := s.files.Open(path)
	if err != nil {
		jsonError(w, "file not found", http.StatusNotFound)
		return
	}
	defer f.Close()

	w.Header().Set("Content-Disposition", "inline")
	io.Copy(w, f)
}
