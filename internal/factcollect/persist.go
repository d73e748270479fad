package factcollect

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/open-edge-platform/pbr-storage/internal/factmodel"
	"github.com/open-edge-platform/pbr-storage/internal/pbrerrors"
)

// The four persisted fact documents (spec §6).
const (
	disksFile = "disks.json"
	lvmFile   = "lvm.json"
	mntsFile  = "mnts.json"
	miscFile  = "misc.json"
)

// factSchemas holds one embedded JSON Schema per document, validated
// before a loaded FactSet is trusted at restore time or compared during
// check-facts (spec §4.2, §2 domain stack: jsonschema/v5 wired into C2/C8).
var factSchemas = map[string]string{
	disksFile: `{
		"type": "object",
		"additionalProperties": {
			"type": "object",
			"properties": {
				"size": {"type": "integer"},
				"type": {"type": "string", "enum": ["msdos", "gpt", "loop", "none"]}
			}
		}
	}`,
	lvmFile: `{
		"type": "object",
		"properties": {
			"PVS": {"type": "array"},
			"VGS": {"type": "array"},
			"LVS": {"type": "array"}
		}
	}`,
	mntsFile: `{
		"type": "object",
		"additionalProperties": {
			"type": "object",
			"required": ["path", "type"]
		}
	}`,
	miscFile: `{
		"type": "object",
		"required": ["arch", "hostname", "uefi"]
	}`,
}

func compiledSchema(name string) (*jsonschema.Schema, error) {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(name, strings.NewReader(factSchemas[name])); err != nil {
		return nil, fmt.Errorf("factcollect: compile schema %s: %w", name, err)
	}
	return compiler.Compile(name)
}

func validateAgainstSchema(name string, raw []byte) error {
	schema, err := compiledSchema(name)
	if err != nil {
		return err
	}
	var v interface{}
	if err := json.Unmarshal(raw, &v); err != nil {
		return fmt.Errorf("factcollect: %s is not valid JSON: %w", name, err)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("factcollect: %s failed schema validation: %w", name, err)
	}
	return nil
}

// SaveFactSet writes the four JSON documents to dir, matching spec §6's
// on-disk shape. Both the host reference copy (/var/lib/pbr/facts) and the
// rescue medium copy (/facts) use this same layout.
func SaveFactSet(dir string, fs *factmodel.FactSet) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("factcollect: mkdir %s: %w", dir, err)
	}

	docs := map[string]interface{}{
		disksFile: fs.Disks,
		lvmFile:   fs.Lvm,
		mntsFile:  fs.Mnts,
		miscFile:  fs.Misc,
	}
	for name, v := range docs {
		b, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return fmt.Errorf("factcollect: marshal %s: %w", name, err)
		}
		if err := validateAgainstSchema(name, b); err != nil {
			return err
		}
		if err := os.WriteFile(filepath.Join(dir, name), b, 0o644); err != nil {
			return fmt.Errorf("factcollect: write %s: %w", name, err)
		}
	}
	return nil
}

// LoadFactSet reads and schema-validates the four JSON documents from dir.
func LoadFactSet(dir string) (*factmodel.FactSet, error) {
	fs := factmodel.NewFactSet()

	b, err := readValidated(dir, disksFile)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(b, &fs.Disks); err != nil {
		return nil, fmt.Errorf("factcollect: decode %s: %w", disksFile, err)
	}

	b, err = readValidated(dir, lvmFile)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(b, &fs.Lvm); err != nil {
		return nil, fmt.Errorf("factcollect: decode %s: %w", lvmFile, err)
	}

	b, err = readValidated(dir, mntsFile)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(b, &fs.Mnts); err != nil {
		return nil, fmt.Errorf("factcollect: decode %s: %w", mntsFile, err)
	}

	b, err = readValidated(dir, miscFile)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(b, &fs.Misc); err != nil {
		return nil, fmt.Errorf("factcollect: decode %s: %w", miscFile, err)
	}

	return fs, nil
}

func readValidated(dir, name string) ([]byte, error) {
	b, err := os.ReadFile(filepath.Join(dir, name))
	if err != nil {
		return nil, pbrerrors.ExistsWrap("reading "+name, err)
	}
	if err := validateAgainstSchema(name, b); err != nil {
		return nil, err
	}
	return b, nil
}

// CheckFacts performs a fresh collection into scratchDir and byte-compares
// the four documents against refDir, matching spec §4.2's check-facts mode.
// It never writes to refDir. Returns true when every document matches.
func (c *Collector) CheckFacts(diskPaths, bkVgs []string, refDir, scratchDir string) (bool, error) {
	fs, err := c.Collect(diskPaths, bkVgs)
	if err != nil {
		return false, err
	}
	if err := SaveFactSet(scratchDir, fs); err != nil {
		return false, err
	}

	for _, name := range []string{disksFile, lvmFile, mntsFile, miscFile} {
		ref, err := os.ReadFile(filepath.Join(refDir, name))
		if err != nil {
			return false, pbrerrors.ExistsWrap("reading reference "+name, err)
		}
		cur, err := os.ReadFile(filepath.Join(scratchDir, name))
		if err != nil {
			return false, pbrerrors.ExistsWrap("reading scratch "+name, err)
		}
		if !bytes.Equal(ref, cur) {
			log.Infof("factcollect: check-facts mismatch in %s", name)
			return false, nil
		}
	}
	return true, nil
}
