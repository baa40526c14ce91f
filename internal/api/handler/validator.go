package handler

import (
	"fmt"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"name-rotation/backend/internal/model"
)

var registerOnce sync.Once

// RegisterValidators 向 gin 的校验引擎注册自定义规则（重复调用安全）
//
//	session_date: YYYY-MM-DD 格式的会话日期
func RegisterValidators() error {
	var err error
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			err = fmt.Errorf("gin 校验引擎不是 validator/v10")
			return
		}
		err = v.RegisterValidation("session_date", validateSessionDate)
	})
	return err
}

func validateSessionDate(fl validator.FieldLevel) bool {
	_, err := model.ParseSessionDate(fl.Field().String())
	return err == nil
}
