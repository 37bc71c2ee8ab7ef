package handler

import "github.com/go-playground/validator/v10"

// validate はリクエストペイロード検証用の共有バリデーター。
// 構造体タグで必須フィールドを宣言する。
var validate = validator.New()
