// Package env reads configuration from the process environment, falling back
// to a .env file in the working directory.
package env

import (
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"testing"

	"github.com/amirrezaask/randomset/errors"
	"github.com/amirrezaask/randomset/randomset"

	"github.com/joho/godotenv"
)

var dotEnvMap = loadDotEnv(".env")

func loadDotEnv(filenames ...string) map[string]string {
	m, err := godotenv.Read(filenames...)
	if errors.Is(err, fs.ErrNotExist) {
		return map[string]string{}
	}
	if err != nil {
		panic(fmt.Sprintf("cannot parse dotenv file: %s", err))
	}
	return m
}

// Load merges the given dotenv files over the ones already loaded.
func Load(filenames ...string) error {
	m, err := godotenv.Read(filenames...)
	if err != nil {
		return errors.Wrap(err, "cannot load dotenv files %v", filenames)
	}
	for k, v := range m {
		dotEnvMap[k] = v
	}
	return nil
}

func getEnv(key string) string {
	value := dotEnvMap[key]

	if v := os.Getenv(key); v != "" {
		value = v
	}

	return value
}

func GetEnvDefault(key, def string) string {
	value := getEnv(key)
	if value == "" {
		return def
	}
	return value
}

func GetEnvInt(key string, def int) int {
	value := getEnv(key)
	if value == "" {
		return def
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		panic(fmt.Sprintf("`%s` is not an integer: %q", key, value))
	}
	return n
}

func GetEnvBool(key string, def bool) bool {
	value := getEnv(key)
	if value == "" {
		return def
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		panic(fmt.Sprintf("`%s` is not a boolean: %q", key, value))
	}
	return b
}

func GetEnvRequiredNotEmpty(key string) string {
	value := getEnv(key)
	if value == "" {
		if !testing.Testing() {
			panic(fmt.Sprintf("`%s` is not set or is empty", key))
		}
	}
	return value
}

func GetEnvRequired(key string) string {
	_, osSet := os.LookupEnv(key)
	_, dotEnvSet := dotEnvMap[key]
	if !osSet && !dotEnvSet {
		if !testing.Testing() {
			panic(fmt.Sprintf("`%s` is not set", key))
		}
	}
	return getEnv(key)
}

// ParseCommaSeparatedAsSet splits input on commas, trims every segment and
// drops empty ones. Segments keep their first-seen order.
func ParseCommaSeparatedAsSet(input string) *randomset.Set[string] {
	output := randomset.New[string]()
	for _, seg := range strings.Split(input, ",") {
		seg = strings.TrimSpace(seg)
		if seg == "" {
			continue
		}
		output.Insert(seg)
	}

	return output
}
