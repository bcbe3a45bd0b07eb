package controllers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	pkgerrors "github.com/ecofashion/ecofashion-backend/pkg/errors"
)

func uintParam(r *http.Request, name string) (uint, error) {
	raw := chi.URLParam(r, name)
	value, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || value == 0 {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, name+" must be a positive integer")
	}
	return uint(value), nil
}

func uuidParam(r *http.Request, name string) (uuid.UUID, error) {
	value, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, name+" must be a uuid")
	}
	return value, nil
}
