package handler

import (
	"os"
	"path/filepath"

	jsoniter "github.com/json-iterator/go"
)

var jsonAPI = jsoniter.ConfigCompatibleWithStandardLibrary

const jsonFilename = "data.json"

// JSON is the default FileHandler: it serializes the saved value as a
// single data.json file inside the target's directory. Ported from the
// original's json_handler (handlers.py), with json-iterator/go in place
// of the stdlib json/pickle split the Python original used.
var JSON FileHandler = jsonHandler{}

type jsonHandler struct{}

func (jsonHandler) Save(dir string, _ TargetRef, data any) error {
	b, err := jsonAPI.Marshal(data)
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, jsonFilename), b, 0o644)
}

func (jsonHandler) Load(dir string, _ TargetRef) (any, error) {
	b, err := os.ReadFile(filepath.Join(dir, jsonFilename))
	if err != nil {
		return nil, err
	}
	var v any
	if err := jsonAPI.Unmarshal(b, &v); err != nil {
		return nil, err
	}
	return v, nil
}
