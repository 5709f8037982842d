package main

// General API documentation for swaggo. Regenerate docs/ with
// `swag init -g docs.go -d cmd/rtscorrect,internal/httpapi,pkg/types -o docs`.
//
// @title           rtscorrect API
// @version         1.0
// @description     HTTP API for on-device LLM correction of speech-to-text output.
//
// @license.name   MIT
// @license.url    https://opensource.org/licenses/MIT
//
// @BasePath  /
//
// @schemes http
