package contract

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/tidwall/gjson"

	"github.com/diogo/waveportal/internal/models"
)

//go:embed abi/WavePortal.json
var wavePortalABI []byte

// DefaultABI returns the embedded WavePortal ABI
func DefaultABI() abi.ABI {
	parsed, err := ParseABI(wavePortalABI)
	if err != nil {
		panic(fmt.Sprintf("embedded WavePortal ABI is invalid: %v", err))
	}
	return parsed
}

// LoadABI reads the ABI at path, or returns the embedded one when path is empty
func LoadABI(path string) (abi.ABI, error) {
	if path == "" {
		return DefaultABI(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return abi.ABI{}, fmt.Errorf("failed to read ABI file: %w", err)
	}
	return ParseABI(data)
}

// ParseABI parses a raw ABI array or a build artifact that carries the
// array in its "abi" field, and checks it exposes the WavePortal interface
func ParseABI(data []byte) (abi.ABI, error) {
	if !gjson.ValidBytes(data) {
		return abi.ABI{}, fmt.Errorf("ABI is not valid JSON")
	}

	raw := gjson.ParseBytes(data)
	if raw.IsObject() {
		field := raw.Get("abi")
		if !field.IsArray() {
			return abi.ABI{}, fmt.Errorf("artifact has no abi array")
		}
		raw = field
	}

	parsed, err := abi.JSON(strings.NewReader(raw.Raw))
	if err != nil {
		return abi.ABI{}, fmt.Errorf("failed to parse ABI: %w", err)
	}

	for _, name := range []string{models.MethodGetTotalWaves, models.MethodWave, models.MethodGetAllWaves} {
		if _, ok := parsed.Methods[name]; !ok {
			return abi.ABI{}, fmt.Errorf("ABI is missing method %s", name)
		}
	}
	if _, ok := parsed.Events[models.EventNewWave]; !ok {
		return abi.ABI{}, fmt.Errorf("ABI is missing event %s", models.EventNewWave)
	}
	return parsed, nil
}
