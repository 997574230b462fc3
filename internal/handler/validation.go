package handler

import (
	"bytes"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/hitoshi/todoman/internal/model"
)

// maxRequestBodyBytes はリクエストボディの上限サイズ。
const maxRequestBodyBytes = 64 << 10

//go:embed schemas/*.json
var schemaFS embed.FS

// リクエストボディのJSON Schema
const (
	schemaTodoCreate  = "todo_create.json"
	schemaTodoPatch   = "todo_patch.json"
	schemaCredentials = "credentials.json"
)

var requestSchemas = mustCompileSchemas(schemaTodoCreate, schemaTodoPatch, schemaCredentials)

// mustCompileSchemas は埋め込みスキーマをコンパイルする。
// スキーマはバイナリに埋め込まれているため、失敗はプログラムの誤りとしてpanicする。
func mustCompileSchemas(names ...string) map[string]*jsonschema.Schema {
	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft7

	for _, name := range names {
		data, err := schemaFS.ReadFile("schemas/" + name)
		if err != nil {
			panic(fmt.Sprintf("read schema %s: %v", name, err))
		}
		if err := compiler.AddResource(name, bytes.NewReader(data)); err != nil {
			panic(fmt.Sprintf("add schema %s: %v", name, err))
		}
	}

	schemas := make(map[string]*jsonschema.Schema, len(names))
	for _, name := range names {
		schemas[name] = compiler.MustCompile(name)
	}
	return schemas
}

// decodeJSONBody はリクエストボディを読み取り、スキーマで検証してからdstにデコードする。
// JSONとして解析できない場合はINVALID_REQUEST、スキーマ違反はVALIDATION_ERRORを返す。
func decodeJSONBody(w http.ResponseWriter, r *http.Request, schemaName string, dst any) *model.APIError {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxRequestBodyBytes))
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return model.NewInvalidRequestError("リクエストボディが大きすぎます")
		}
		return model.NewInvalidRequestError("リクエストボディの読み取りに失敗しました")
	}

	var doc any
	if err := json.Unmarshal(body, &doc); err != nil {
		return model.NewInvalidRequestError("JSONの解析に失敗しました")
	}

	schema, ok := requestSchemas[schemaName]
	if !ok {
		panic("unknown request schema: " + schemaName)
	}
	if err := schema.Validate(doc); err != nil {
		return schemaErrorToAPIError(err)
	}

	if err := json.Unmarshal(body, dst); err != nil {
		return model.NewInvalidRequestError("JSONの解析に失敗しました")
	}
	return nil
}

// schemaErrorToAPIError はスキーマ違反の最初の原因をフィールド単位のエラーに変換する。
func schemaErrorToAPIError(err error) *model.APIError {
	var ve *jsonschema.ValidationError
	if !errors.As(err, &ve) {
		return model.NewInvalidRequestError(err.Error())
	}

	leaf := ve
	for len(leaf.Causes) > 0 {
		leaf = leaf.Causes[0]
	}

	field := strings.TrimPrefix(leaf.InstanceLocation, "/")
	if field == "" {
		field = "body"
	}
	return model.NewValidationError(field, leaf.Message)
}
