package workflowfile

import (
	"fmt"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"

	"github.com/shaiso/Seqflow/internal/domain"
)

// hclWorkflowFile — верхний уровень HCL файла workflow.
type hclWorkflowFile struct {
	Name        string            `hcl:"name,optional"`
	Description string            `hcl:"description,optional"`
	Author      string            `hcl:"author,optional"`
	Globals     map[string]string `hcl:"globals,optional"`
	Formats     []*hclFormat      `hcl:"format,block"`
	FirstSteps  []*hclStep        `hcl:"first_step,block"`
	Steps       []*hclStep        `hcl:"step,block"`
	EndSteps    []*hclStep        `hcl:"end_step,block"`
	Design      *hclDesign        `hcl:"design,block"`
}

type hclFormat struct {
	Name        string `hcl:"name,label"`
	Alias       string `hcl:"alias,optional"`
	Description string `hcl:"description,optional"`
	Generator   string `hcl:"generator,optional"`
	MaxFiles    int    `hcl:"max_files,optional"`
	Extension   string `hcl:"extension,optional"`
}

type hclStep struct {
	ID                 string            `hcl:"id,label"`
	Module             string            `hcl:"module"`
	Version            string            `hcl:"version,optional"`
	Parameters         map[string]string `hcl:"parameters,optional"`
	Skip               bool              `hcl:"skip,optional"`
	DiscardOutput      bool              `hcl:"discard_output,optional"`
	RequiredMemory     int               `hcl:"required_memory,optional"`
	RequiredProcessors int               `hcl:"required_processors,optional"`
	DataProduct        string            `hcl:"data_product,optional"`
	OutputDir          string            `hcl:"output_dir,optional"`
	Inputs             []*hclInput       `hcl:"input,block"`
}

type hclInput struct {
	Name string `hcl:"name,label"`
	Step string `hcl:"step"`
	Port string `hcl:"port"`
}

type hclDesign struct {
	Files   map[string][]string `hcl:"files,optional"`
	Samples []*hclSample        `hcl:"sample,block"`
}

type hclSample struct {
	ID    string              `hcl:"id,label"`
	Name  string              `hcl:"name,optional"`
	Files map[string][]string `hcl:"files,optional"`
}

func parseHCL(data []byte, filename string) (*domain.WorkflowSpec, error) {
	file, diags := hclparse.NewParser().ParseHCL(data, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("%w %s: %w", ErrParse, filename, diags)
	}

	var parsed hclWorkflowFile
	if diags := gohcl.DecodeBody(file.Body, nil, &parsed); diags.HasErrors() {
		return nil, fmt.Errorf("%w %s: %w", ErrParse, filename, diags)
	}

	spec := &domain.WorkflowSpec{
		Name:        parsed.Name,
		Description: parsed.Description,
		Author:      parsed.Author,
		Globals:     parsed.Globals,
		FirstSteps:  convertSteps(parsed.FirstSteps),
		Steps:       convertSteps(parsed.Steps),
		EndSteps:    convertSteps(parsed.EndSteps),
	}
	for _, f := range parsed.Formats {
		spec.Formats = append(spec.Formats, domain.DataFormat{
			Name:        f.Name,
			Alias:       f.Alias,
			Description: f.Description,
			Generator:   f.Generator,
			MaxFiles:    f.MaxFiles,
			Extension:   f.Extension,
		})
	}
	if parsed.Design != nil {
		spec.Design = convertDesign(parsed.Design)
	}
	return spec, nil
}

// parseHCLDesign разбирает отдельный файл design: атрибут files и блоки sample
// на верхнем уровне.
func parseHCLDesign(data []byte, filename string) (*domain.Design, error) {
	file, diags := hclparse.NewParser().ParseHCL(data, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("%w %s: %w", ErrParse, filename, diags)
	}

	var parsed hclDesign
	if diags := gohcl.DecodeBody(file.Body, nil, &parsed); diags.HasErrors() {
		return nil, fmt.Errorf("%w %s: %w", ErrParse, filename, diags)
	}
	return convertDesign(&parsed), nil
}

func convertSteps(steps []*hclStep) []domain.StepSpec {
	if len(steps) == 0 {
		return nil
	}

	result := make([]domain.StepSpec, 0, len(steps))
	for _, s := range steps {
		spec := domain.StepSpec{
			ID:                 s.ID,
			Module:             s.Module,
			Version:            s.Version,
			Parameters:         s.Parameters,
			Skip:               s.Skip,
			DiscardOutput:      s.DiscardOutput,
			RequiredMemory:     s.RequiredMemory,
			RequiredProcessors: s.RequiredProcessors,
			DataProduct:        s.DataProduct,
			OutputDir:          s.OutputDir,
		}
		if len(s.Inputs) > 0 {
			spec.Inputs = make(map[string]domain.PortRef, len(s.Inputs))
			for _, in := range s.Inputs {
				spec.Inputs[in.Name] = domain.PortRef{Step: in.Step, Port: in.Port}
			}
		}
		result = append(result, spec)
	}
	return result
}

func convertDesign(d *hclDesign) *domain.Design {
	design := &domain.Design{Files: d.Files}
	for _, s := range d.Samples {
		design.Samples = append(design.Samples, domain.Sample{
			ID:    s.ID,
			Name:  s.Name,
			Files: s.Files,
		})
	}
	return design
}
