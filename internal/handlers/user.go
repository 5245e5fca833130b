package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/nkiryanov/studyplanner/internal/handlers/render"
	"github.com/nkiryanov/studyplanner/internal/logger"
	"github.com/nkiryanov/studyplanner/internal/service/user"
)

const (
	maxAvatarBytes = 5 << 20

	// Room for multipart headers around the file
	maxAvatarRequestBytes = maxAvatarBytes + 1<<20
)

func handleCreateUser(userService userService, l logger.Logger) http.Handler {
	type request struct {
		Email           string `json:"email" validate:"required,email,max=254"`
		FullName        string `json:"fullname" validate:"required,max=100"`
		Password        string `json:"password" validate:"required,min=8,max=72"`
		ConfirmPassword string `json:"confirmPassword" validate:"required"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, err := render.BindAndValidate[request](w, r)
		if err != nil {
			return
		}

		u, err := userService.Create(r.Context(), user.CreateParams{
			Email:           data.Email,
			FullName:        data.FullName,
			Password:        data.Password,
			ConfirmPassword: data.ConfirmPassword,
		})
		if err != nil {
			renderError(w, r, l, err)
			return
		}

		render.JSONWithStatus(w, u.Profile(), http.StatusCreated)
	})
}

func handleActivateUser(userService userService, l logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, err := userService.Activate(r.Context(), r.PathValue("token"))
		if err != nil {
			renderError(w, r, l, err)
			return
		}

		render.Message(w, "Account activated", http.StatusOK)
	})
}

func handleGetUser(userService userService, l logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, ok := currentIdentity(w, r)
		if !ok {
			return
		}

		u, err := userService.Get(r.Context(), identity.UserID)
		if err != nil {
			renderError(w, r, l, err)
			return
		}

		render.JSON(w, u.Profile())
	})
}

func handleUpdateUser(userService userService, l logger.Logger) http.Handler {
	type request struct {
		FullName    *string `json:"fullname" validate:"omitempty,min=1,max=100"`
		Password    *string `json:"password" validate:"omitempty,min=8,max=72"`
		OldPassword *string `json:"oldPassword"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, ok := currentIdentity(w, r)
		if !ok {
			return
		}

		data, err := render.BindAndValidate[request](w, r)
		if err != nil {
			return
		}

		u, err := userService.Update(r.Context(), identity.UserID, user.UpdateParams{
			FullName:    data.FullName,
			Password:    data.Password,
			OldPassword: data.OldPassword,
		})
		if err != nil {
			renderError(w, r, l, err)
			return
		}

		render.JSON(w, u.Profile())
	})
}

func handleDeleteUser(userService userService, l logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, ok := currentIdentity(w, r)
		if !ok {
			return
		}

		err := userService.Delete(r.Context(), identity.UserID)
		if err != nil {
			renderError(w, r, l, err)
			return
		}

		render.Message(w, "User deleted", http.StatusOK)
	})
}

// Upload avatar as multipart form with 'file' field
func handleUploadAvatar(userService userService, l logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, ok := currentIdentity(w, r)
		if !ok {
			return
		}

		r.Body = http.MaxBytesReader(w, r.Body, maxAvatarRequestBytes)
		file, header, err := r.FormFile("file")
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				render.ServiceError(w, "File is too large (maximum 5 MiB)", http.StatusBadRequest)
				return
			}
			render.ServiceError(w, "Multipart form with 'file' field expected", http.StatusBadRequest)
			return
		}
		defer file.Close() // nolint:errcheck

		if header.Size > maxAvatarBytes {
			render.ServiceError(w, "File is too large (maximum 5 MiB)", http.StatusBadRequest)
			return
		}
		contentType := header.Header.Get("Content-Type")
		if !strings.HasPrefix(contentType, "image/") {
			render.ServiceError(w, "Only images are allowed", http.StatusBadRequest)
			return
		}

		u, err := userService.UploadAvatar(r.Context(), identity.UserID, header.Filename, contentType, file)
		if err != nil {
			renderError(w, r, l, err)
			return
		}

		render.JSON(w, u.Profile())
	})
}
