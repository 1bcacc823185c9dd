package util

import (
	"fmt"
	"strings"

	"github.com/ValentinKolb/fKV/lib/codec"
	"github.com/ValentinKolb/fKV/lib/diskmap"
	"github.com/ValentinKolb/fKV/lib/logger"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	// Wrap is the number of characters to Wrap the help text at
	Wrap int = 50
)

// WrapString wraps a string at Wrap characters
func WrapString(text string) string {
	var wrappedLines []string
	var currentLine strings.Builder
	lineWidth := 0

	for _, word := range strings.Fields(text) {
		wordWidth := len(word)

		// Check if we need to wrap
		if lineWidth > 0 && lineWidth+1+wordWidth > Wrap {
			wrappedLines = append(wrappedLines, currentLine.String())
			currentLine.Reset()
			lineWidth = 0
		}

		// Add space before word (if not first word on line)
		if lineWidth > 0 {
			currentLine.WriteString(" ")
			lineWidth++
		}

		// Add the word
		currentLine.WriteString(word)
		lineWidth += wordWidth
	}

	// Add any remaining text
	if currentLine.Len() > 0 {
		wrappedLines = append(wrappedLines, currentLine.String())
	}

	return strings.Join(wrappedLines, "\n")
}

// SetupStoreFlags adds the common store flags to a command
func SetupStoreFlags(cmd *cobra.Command) {
	key := "dir"
	cmd.PersistentFlags().String(key, "data", WrapString("The directory backing the key-value map"))

	key = "codec"
	cmd.PersistentFlags().String(key, "cbor", WrapString("Value codec to use (cbor, gob, json). All operations on one directory must use the same codec"))

	key = "strict-keys"
	cmd.PersistentFlags().Bool(key, false, WrapString("Fail key enumeration on directory entries whose names cannot be decoded instead of skipping them"))

	key = "fresh"
	cmd.PersistentFlags().Bool(key, false, WrapString("Wipe the directory before opening it. All existing entries are destroyed"))

	key = "log-level"
	cmd.PersistentFlags().String(key, "info", WrapString("The level at which logs will be output (debug, info, warn, error)"))
}

// InitConfig initializes configuration from environment variables
func InitConfig() {
	// load env files
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	// initialize viper
	viper.SetEnvPrefix("fkv")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv() // read in environment variables that match
}

// GetCodec creates a value codec based on configuration
func GetCodec() (codec.ICodec, error) {
	switch viper.GetString("codec") {
	case "cbor":
		return codec.NewCBORCodec(), nil
	case "gob":
		return codec.NewGOBCodec(), nil
	case "json":
		return codec.NewJSONCodec(), nil
	default:
		return nil, fmt.Errorf("invalid codec %s", viper.GetString("codec"))
	}
}

// OpenStore opens the disk map configured via flags and environment.
// The CLI works on string keys and string values.
func OpenStore() (diskmap.IDiskMap[string, string], error) {
	c, err := GetCodec()
	if err != nil {
		return nil, err
	}

	level, err := logger.ParseLogLevel(viper.GetString("log-level"))
	if err != nil {
		return nil, err
	}
	logger.SetLevelAll(level)

	opts := diskmap.DefaultOptions()
	opts.Codec = c
	opts.StrictKeys = viper.GetBool("strict-keys")

	dir := viper.GetString("dir")
	if viper.GetBool("fresh") {
		return diskmap.OpenNew[string, string](dir, diskmap.StringKeys(), opts)
	}
	return diskmap.Open[string, string](dir, diskmap.StringKeys(), opts)
}

// BindCommandFlags binds a command's flags to viper
func BindCommandFlags(cmd *cobra.Command) error {
	return viper.BindPFlags(cmd.Flags())
}
