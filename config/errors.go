package config

import "fmt"

// ConfigError is a configuration failure with an actionable fix. The Action
// text is aimed at the operator reading a startup failure, not at code.
type ConfigError struct {
	Code    string // stable code for programmatic handling
	Message string // what is wrong
	Action  string // how to fix it
}

func (e *ConfigError) Error() string {
	if e.Action != "" {
		return fmt.Sprintf("%s. %s", e.Message, e.Action)
	}
	return e.Message
}

// Error codes.
const (
	CodeConfigFileMissing = "CONFIG_FILE_MISSING"
	CodeConfigFileInvalid = "CONFIG_FILE_INVALID"
	CodeEnvFileBroken     = "ENV_FILE_BROKEN"
	CodeInvalidSetting    = "INVALID_SETTING"
	CodeEngineIncomplete  = "ENGINE_INCOMPLETE"
)

// ErrConfigFileMissing reports a named config file that does not exist.
func ErrConfigFileMissing(path string) *ConfigError {
	return &ConfigError{
		Code:    CodeConfigFileMissing,
		Message: fmt.Sprintf("configuration file not found: %s", path),
		Action:  "Create the file or pass the correct path",
	}
}

// ErrConfigFileInvalid reports a config file that fails to parse.
func ErrConfigFileInvalid(path string, cause error) *ConfigError {
	return &ConfigError{
		Code:    CodeConfigFileInvalid,
		Message: fmt.Sprintf("cannot parse configuration file %s: %v", path, cause),
		Action:  "Fix the YAML syntax",
	}
}

// ErrEnvFileBroken reports a .env file that exists but cannot be loaded.
func ErrEnvFileBroken(cause error) *ConfigError {
	return &ConfigError{
		Code:    CodeEnvFileBroken,
		Message: fmt.Sprintf("cannot load .env file: %v", cause),
		Action:  "Fix or remove the .env file in the working directory",
	}
}

// ErrInvalidSetting reports a setting outside its valid range.
func ErrInvalidSetting(name, value, constraint string) *ConfigError {
	return &ConfigError{
		Code:    CodeInvalidSetting,
		Message: fmt.Sprintf("invalid %s value %q: %s", name, value, constraint),
		Action:  fmt.Sprintf("Set %s to a valid value", name),
	}
}

// ErrEngineIncomplete reports an engine URL without a model name.
func ErrEngineIncomplete() *ConfigError {
	return &ConfigError{
		Code:    CodeEngineIncomplete,
		Message: "engine.url is set but engine.model is empty",
		Action:  fmt.Sprintf("Set engine.model in the config file or %s in the environment", EnvEngineModel),
	}
}
