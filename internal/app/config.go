package app

import (
	"embed"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/basewatch/procurement-graph/internal/mappers"
	"github.com/basewatch/procurement-graph/internal/pkg/logger"
)

const pipelineSpecEnv = "SYNC_PIPELINE_YAML"

//go:embed pipeline.yaml
var pipelineSpecFS embed.FS

// Step is one collection-to-mapper sync run.
type Step struct {
	Collection string
	Mapper     string
	BatchSize  int
}

// Pipeline is the resolved run plan: the ordered sync steps plus whether the
// post-sync enrichment phase runs.
type Pipeline struct {
	Steps      []Step
	Enrichment bool
}

// fallback plan used when YAML is missing or invalid
var fallbackPipeline = Pipeline{
	Steps: []Step{
		{Collection: "contracts", Mapper: "contracts", BatchSize: 1000},
		{Collection: "entities", Mapper: "entities", BatchSize: 1000},
		{Collection: "cpv", Mapper: "cpv", BatchSize: 1000},
		{Collection: "pep", Mapper: "pep", BatchSize: 500},
		{Collection: "orbis", Mapper: "orbis", BatchSize: 1000},
	},
	Enrichment: true,
}

type yamlPipelineSpec struct {
	Pipeline   string         `yaml:"pipeline"`
	Version    int            `yaml:"version"`
	Enrichment *bool          `yaml:"enrichment"`
	Steps      []yamlStepSpec `yaml:"steps"`
}

type yamlStepSpec struct {
	Collection string `yaml:"collection"`
	Mapper     string `yaml:"mapper"`
	BatchSize  int    `yaml:"batch_size"`
	Enabled    *bool  `yaml:"enabled"`
}

var pipelineOnce sync.Once
var pipelineCache *Pipeline
var pipelineErr error

// CurrentPipeline returns the run plan from the embedded spec (or the file
// named by SYNC_PIPELINE_YAML), falling back to the compiled-in plan when the
// spec is missing or invalid.
func CurrentPipeline(log *logger.Logger) Pipeline {
	pipelineOnce.Do(func() {
		pipelineCache, pipelineErr = loadPipeline()
	})
	if pipelineErr != nil {
		if log != nil {
			log.Warn("pipeline spec load failed; using fallback", "error", pipelineErr)
		}
		return fallbackPipeline
	}
	return *pipelineCache
}

func loadPipeline() (*Pipeline, error) {
	data, err := readPipelineSpec()
	if err != nil {
		return nil, err
	}

	var spec yamlPipelineSpec
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return nil, err
	}
	return buildPipeline(&spec)
}

func readPipelineSpec() ([]byte, error) {
	if path := strings.TrimSpace(os.Getenv(pipelineSpecEnv)); path != "" {
		return os.ReadFile(path)
	}
	return pipelineSpecFS.ReadFile("pipeline.yaml")
}

func buildPipeline(spec *yamlPipelineSpec) (*Pipeline, error) {
	if spec == nil {
		return nil, errors.New("missing spec")
	}
	if strings.TrimSpace(spec.Pipeline) != "graph_sync" {
		return nil, fmt.Errorf("unexpected pipeline: %s", spec.Pipeline)
	}
	if len(spec.Steps) == 0 {
		return nil, errors.New("no steps defined")
	}

	out := &Pipeline{Enrichment: true}
	if spec.Enrichment != nil {
		out.Enrichment = *spec.Enrichment
	}

	seen := map[string]bool{}
	for _, step := range spec.Steps {
		collection := strings.TrimSpace(step.Collection)
		if collection == "" {
			return nil, errors.New("step collection is required")
		}
		if seen[collection] {
			return nil, fmt.Errorf("duplicate step collection: %s", collection)
		}
		seen[collection] = true
		if step.Enabled != nil && !*step.Enabled {
			continue
		}

		mapperName := strings.TrimSpace(step.Mapper)
		if mapperName == "" {
			mapperName = collection
		}
		if _, ok := mappers.Lookup(mapperName); !ok {
			return nil, fmt.Errorf("step %s: unknown mapper %s (known: %s)",
				collection, mapperName, strings.Join(mappers.Names(), ", "))
		}
		if step.BatchSize < 0 {
			return nil, fmt.Errorf("step %s: negative batch_size", collection)
		}

		out.Steps = append(out.Steps, Step{
			Collection: collection,
			Mapper:     mapperName,
			BatchSize:  step.BatchSize,
		})
	}
	if len(out.Steps) == 0 {
		return nil, errors.New("all steps disabled")
	}
	return out, nil
}
