// Package relayconfig rewrites the advertised address of the media relay in
// its YAML configuration file.
package relayconfig

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"gopkg.in/yaml.v3"
)

const (
	rtcKey          = "rtc"
	nodeIPKey       = "node_ip"
	backupTimeStamp = "20060102_150405"
)

// ErrConfigMissing is returned when the relay configuration file does not exist.
var ErrConfigMissing = errors.New("relayconfig: config file not found")

// Result describes what SetNodeIP did to the file.
type Result struct {
	Previous   string
	Changed    bool
	BackupPath string
}

// Rewriter edits rtc.node_ip in place, keeping the rest of the document intact.
type Rewriter struct {
	Now func() time.Time
}

func NewRewriter() *Rewriter {
	return &Rewriter{Now: time.Now}
}

// NodeIP returns the current rtc.node_ip value, or "" when it is not set.
func (rw *Rewriter) NodeIP(path string) (string, error) {
	doc, _, err := readDocument(path)
	if err != nil {
		return "", err
	}
	root, err := rootMapping(&doc)
	if err != nil {
		return "", err
	}
	rtc := lookup(root, rtcKey)
	if rtc == nil || rtc.Kind != yaml.MappingNode {
		return "", nil
	}
	if value := lookup(rtc, nodeIPKey); value != nil {
		return value.Value, nil
	}
	return "", nil
}

// SetNodeIP writes ip to rtc.node_ip. When the value differs, a timestamped
// backup of the original file is written before the file is replaced.
func (rw *Rewriter) SetNodeIP(path, ip string) (Result, error) {
	doc, mode, err := readDocument(path)
	if err != nil {
		return Result{}, err
	}

	root, err := rootMapping(&doc)
	if err != nil {
		return Result{}, err
	}

	rtc := lookup(root, rtcKey)
	if rtc == nil {
		rtc = &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
		root.Content = append(root.Content, scalar(rtcKey), rtc)
	} else if rtc.Kind != yaml.MappingNode {
		// An empty "rtc:" is filled in; any other value would be lost.
		if rtc.Kind != yaml.ScalarNode || rtc.ShortTag() != "!!null" {
			return Result{}, fmt.Errorf("relayconfig: %s in %s is not a mapping", rtcKey, path)
		}
		*rtc = yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	}

	result := Result{}
	value := lookup(rtc, nodeIPKey)
	if value != nil {
		result.Previous = value.Value
		if value.Value == ip {
			log.Debug("relay config already advertises address", "path", path, "node_ip", ip)
			return result, nil
		}
	}

	backupPath, err := rw.backup(path, mode)
	if err != nil {
		return result, err
	}
	result.BackupPath = backupPath

	if value == nil {
		rtc.Content = append(rtc.Content, scalar(nodeIPKey), scalar(ip))
	} else {
		*value = *scalar(ip)
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(&doc); err != nil {
		return result, fmt.Errorf("relayconfig: encode %s: %w", path, err)
	}
	if err := enc.Close(); err != nil {
		return result, fmt.Errorf("relayconfig: encode %s: %w", path, err)
	}

	if err := os.WriteFile(path, buf.Bytes(), mode); err != nil {
		return result, fmt.Errorf("relayconfig: write %s: %w", path, err)
	}

	result.Changed = true
	log.Info("relay config updated", "path", path, "node_ip", ip, "backup", backupPath)
	return result, nil
}

func (rw *Rewriter) backup(path string, mode os.FileMode) (string, error) {
	now := time.Now
	if rw.Now != nil {
		now = rw.Now
	}

	original, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("relayconfig: read for backup: %w", err)
	}

	backupPath := fmt.Sprintf("%s.backup.%s", path, now().Format(backupTimeStamp))
	if err := os.WriteFile(backupPath, original, mode); err != nil {
		return "", fmt.Errorf("relayconfig: write backup %s: %w", backupPath, err)
	}
	return backupPath, nil
}

func readDocument(path string) (yaml.Node, os.FileMode, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return yaml.Node{}, 0, fmt.Errorf("%w: %s", ErrConfigMissing, path)
		}
		return yaml.Node{}, 0, fmt.Errorf("relayconfig: stat %s: %w", path, err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return yaml.Node{}, 0, fmt.Errorf("relayconfig: read %s: %w", path, err)
	}

	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return yaml.Node{}, 0, fmt.Errorf("relayconfig: parse %s: %w", path, err)
	}
	return doc, info.Mode().Perm(), nil
}

func rootMapping(doc *yaml.Node) (*yaml.Node, error) {
	if doc.Kind == 0 {
		*doc = yaml.Node{Kind: yaml.DocumentNode}
	}
	if doc.Kind != yaml.DocumentNode {
		return nil, fmt.Errorf("relayconfig: unexpected document kind %d", doc.Kind)
	}
	if len(doc.Content) == 0 {
		doc.Content = append(doc.Content, &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"})
	}

	root := doc.Content[0]
	if root.Kind == yaml.ScalarNode && root.Tag == "!!null" {
		*root = yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	}
	if root.Kind != yaml.MappingNode {
		return nil, errors.New("relayconfig: top-level YAML value is not a mapping")
	}
	return root, nil
}

func lookup(mapping *yaml.Node, key string) *yaml.Node {
	for i := 0; i+1 < len(mapping.Content); i += 2 {
		if mapping.Content[i].Value == key {
			return mapping.Content[i+1]
		}
	}
	return nil
}

func scalar(value string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: value}
}
