// Package handler exposes the HTTP surface. Handlers stay thin: bind, locate
// the session's wizard, delegate, serialize the snapshot. Business errors
// surface as inline step errors or notices inside the snapshot, never as bare
// HTTP errors.
package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"pagoqr/internal/apierror"
	"pagoqr/internal/aviso"
)

// bindAndValidate binds the JSON body and answers a 400 envelope on failure,
// with per-field detail when the validator produced it.
func bindAndValidate(c *gin.Context, obj interface{}) bool {
	err := c.ShouldBindJSON(obj)
	if err == nil {
		return true
	}

	var vErrs validator.ValidationErrors
	if errors.As(err, &vErrs) {
		fields := make(map[string]string, len(vErrs))
		for _, fe := range vErrs {
			fields[strings.ToLower(fe.Field())] = "no cumple la regla '" + fe.Tag() + "'"
		}
		c.JSON(http.StatusBadRequest, apierror.NewValidation(fields))
		return false
	}
	c.JSON(http.StatusBadRequest, apierror.New("Cuerpo de la solicitud inválido"))
	return false
}

// popAviso drains the notice slot into the response. Delivery is one-shot:
// serializing the notice counts as showing it.
func popAviso(s *aviso.Slot) *aviso.Aviso {
	a := s.Actual()
	s.Descartar()
	return a
}
