package http

import (
	"fmt"
	"regexp"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// tickerPattern accepts plain tickers plus the suffix forms used for
// indices (^GSPC), currency pairs (EUR=X), crypto pairs (BTC-USD) and
// exchange-qualified listings (VWRL.L).
var tickerPattern = regexp.MustCompile(`^\^?[A-Za-z0-9]{1,10}([.=-][A-Za-z0-9]{1,6})?$`)

var registerOnce sync.Once

func validateTicker(fl validator.FieldLevel) bool {
	return tickerPattern.MatchString(fl.Field().String())
}

// RegisterValidators installs the custom binding rules on gin's validator.
func RegisterValidators() error {
	var err error
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			err = fmt.Errorf("unexpected validator engine %T", binding.Validator.Engine())
			return
		}
		err = v.RegisterValidation("ticker", validateTicker)
	})
	return err
}
