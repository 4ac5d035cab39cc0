package validation

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	validatorv10 "github.com/go-playground/validator/v10"
)

// BindAndValidate binds the JSON body into req and runs validation.
// On failure it writes a 400 response and returns the error so the handler can short-circuit.
func BindAndValidate(c *gin.Context, req *CreateOrderRequest, v *validatorv10.Validate) error {
	if err := c.ShouldBindJSON(req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return err
	}

	if err := Validate(v, req); err != nil {
		var verr *Error
		if errors.As(err, &verr) {
			c.JSON(http.StatusBadRequest, gin.H{"error": verr.Message})
		} else {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		}
		return err
	}
	return nil
}
