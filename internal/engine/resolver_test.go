package engine

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/shaiso/Seqflow/internal/domain"
)

func mapperModules() fakeProvider {
	return fakeProvider{
		"mapper": portModule("mapper",
			[]PortSpec{inPort("reads", "reads_fastq")},
			[]PortSpec{outPort("mapping", "mapper_results_sam")}),
		"counter": portModule("counter",
			[]PortSpec{inPort("mapping", "mapper_results_sam")},
			[]PortSpec{outPort("expression", "expression_results_tsv")}),
	}
}

func TestBuild_LinearChain(t *testing.T) {
	spec := &domain.WorkflowSpec{
		Name: "rnaseq",
		Steps: []domain.StepSpec{
			{ID: "map", Module: "mapper"},
			{ID: "count", Module: "counter"},
		},
		Design: readsDesign("/data/s1.fq"),
	}

	w, err := buildWorkflow(t, spec, mapperModules(), Settings{}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []string{"root", "design", "checker", "first", "map", "count"}
	if diff := cmp.Diff(want, stepIDs(w)); diff != "" {
		t.Errorf("steps mismatch (-want +got):\n%s", diff)
	}

	mapStep := w.Step("map")
	reads := mapStep.InputPort("reads")
	if reads.Link() == nil || reads.Link().Step() != w.DesignStep() {
		t.Fatalf("map.reads should be linked to design, got %v", reads.Link())
	}

	count := w.Step("count")
	if got := count.InputPort("mapping").Link(); got != mapStep.OutputPort("mapping") {
		t.Errorf("count.mapping should be linked to map.mapping")
	}
	if !count.DependsOn(mapStep) {
		t.Error("count should depend on map")
	}
	if !mapStep.DependsOn(w.FirstStep()) {
		t.Error("map should depend on first")
	}

	for _, s := range w.Steps() {
		for _, p := range s.InputPorts() {
			if !p.IsLinked() {
				t.Errorf("port %s of step %s is not linked", p.Name, s.ID)
			}
		}
	}
}

func TestBuild_TrailingSkippedStepsDropped(t *testing.T) {
	spec := &domain.WorkflowSpec{
		Steps: []domain.StepSpec{
			{ID: "map", Module: "mapper"},
			{ID: "count", Module: "counter", Skip: true},
		},
		Design: readsDesign("/data/s1.fq"),
	}

	w, err := buildWorkflow(t, spec, mapperModules(), Settings{}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if w.Step("count") != nil {
		t.Error("trailing skipped step should be dropped")
	}
}

func TestBuild_AllStepsSkipped(t *testing.T) {
	spec := &domain.WorkflowSpec{
		Steps: []domain.StepSpec{
			{ID: "map", Module: "mapper", Skip: true},
		},
	}

	_, err := buildWorkflow(t, spec, mapperModules(), Settings{}, nil)
	if !errors.Is(err, ErrNoSteps) {
		t.Errorf("expected ErrNoSteps, got %v", err)
	}
}

func TestResolve_Idempotent(t *testing.T) {
	spec := &domain.WorkflowSpec{
		Steps: []domain.StepSpec{
			{ID: "map", Module: "mapper"},
			{ID: "count", Module: "counter"},
		},
		Design: readsDesign("/data/s1.fq.gz"),
	}
	modules := mapperModules()
	modules["mapper"] = func() *fakeModule {
		return &fakeModule{
			name: "mapper",
			inputs: []PortSpec{{
				Name:         "reads",
				Format:       "reads_fastq",
				Compressions: domain.NewCompressionSet(domain.CompressionNone),
			}},
			outputs: []PortSpec{outPort("mapping", "mapper_results_sam")},
		}
	}

	w, err := buildWorkflow(t, spec, modules, Settings{OutputDir: "/out", WorkingDir: "/work"}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	before := stepIDs(w)
	if err := w.Resolve(); err != nil {
		t.Fatalf("second resolve: %v", err)
	}
	if diff := cmp.Diff(before, stepIDs(w)); diff != "" {
		t.Errorf("second resolve changed the workflow (-before +after):\n%s", diff)
	}
}

func TestResolve_InsertsInputAdapter(t *testing.T) {
	spec := &domain.WorkflowSpec{
		Steps: []domain.StepSpec{
			{ID: "map", Module: "mapper"},
		},
		Design: readsDesign("/data/s1.fq.gz"),
	}
	modules := fakeProvider{
		"mapper": func() *fakeModule {
			return &fakeModule{
				name: "mapper",
				inputs: []PortSpec{{
					Name:         "reads",
					Format:       "reads_fastq",
					Compressions: domain.NewCompressionSet(domain.CompressionNone, domain.CompressionBzip2),
				}},
			}
		},
	}

	w, err := buildWorkflow(t, spec, modules, Settings{}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []string{"root", "design", "checker", "first", "mapprepare1", "map"}
	if diff := cmp.Diff(want, stepIDs(w)); diff != "" {
		t.Fatalf("steps mismatch (-want +got):\n%s", diff)
	}

	adapter := w.Step("mapprepare1")
	params := domain.ParametersToMap(adapter.Parameters)
	wantParams := map[string]string{
		ParamFormat:              "reads_fastq",
		ParamOutputCompression:   "NONE",
		ParamDesignInput:         "true",
		ParamAllowedCompressions: "BZIP2,NONE",
	}
	if diff := cmp.Diff(wantParams, params); diff != "" {
		t.Errorf("adapter parameters mismatch (-want +got):\n%s", diff)
	}

	if adapter.InputPorts()[0].Link().Step() != w.DesignStep() {
		t.Error("adapter input should be linked to design")
	}
	if w.Step("map").InputPort("reads").Link() != adapter.OutputPort(CopyInputPortOut) {
		t.Error("map.reads should be linked to adapter output")
	}
}

func TestResolve_DesignRestrictedCompressions(t *testing.T) {
	// Сжатие совпадает, но данные из DESIGN, а допустимы не все сжатия.
	spec := &domain.WorkflowSpec{
		Steps: []domain.StepSpec{
			{ID: "map", Module: "mapper"},
		},
		Design: readsDesign("/data/s1.fq"),
	}
	modules := fakeProvider{
		"mapper": func() *fakeModule {
			return &fakeModule{
				name: "mapper",
				inputs: []PortSpec{{
					Name:         "reads",
					Format:       "reads_fastq",
					Compressions: domain.NewCompressionSet(domain.CompressionNone),
				}},
			}
		},
	}

	w, err := buildWorkflow(t, spec, modules, Settings{}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if w.Step("mapprepare1") == nil {
		t.Errorf("expected input adapter, steps: %v", stepIDs(w))
	}
}

func TestResolve_SkippedConsumerHasNoAdapter(t *testing.T) {
	spec := &domain.WorkflowSpec{
		Steps: []domain.StepSpec{
			{ID: "map", Module: "mapper", Skip: true},
			{ID: "count", Module: "counter"},
		},
		Design: readsDesign("/data/s1.fq.gz"),
	}
	modules := mapperModules()
	modules["mapper"] = func() *fakeModule {
		return &fakeModule{
			name: "mapper",
			inputs: []PortSpec{{
				Name:         "reads",
				Format:       "reads_fastq",
				Compressions: domain.NewCompressionSet(domain.CompressionNone),
			}},
			outputs: []PortSpec{outPort("mapping", "mapper_results_sam")},
		}
	}

	w, err := buildWorkflow(t, spec, modules, Settings{}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if w.Step("mapprepare1") != nil {
		t.Error("skipped step should not get an input adapter")
	}
}

func TestAdapterCompression(t *testing.T) {
	tests := []struct {
		name     string
		produced domain.Compression
		accepted domain.CompressionSet
		want     domain.Compression
	}{
		{
			name:     "produced accepted",
			produced: domain.CompressionGzip,
			accepted: domain.NewCompressionSet(domain.CompressionGzip, domain.CompressionNone),
			want:     domain.CompressionGzip,
		},
		{
			name:     "none preferred",
			produced: domain.CompressionGzip,
			accepted: domain.NewCompressionSet(domain.CompressionNone, domain.CompressionBzip2),
			want:     domain.CompressionNone,
		},
		{
			name:     "first in canonical order",
			produced: domain.CompressionNone,
			accepted: domain.NewCompressionSet(domain.CompressionBzip2, domain.CompressionGzip),
			want:     domain.CompressionGzip,
		},
		{
			name:     "single choice",
			produced: domain.CompressionGzip,
			accepted: domain.NewCompressionSet(domain.CompressionBzip2),
			want:     domain.CompressionBzip2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := AdapterCompression(tt.produced, tt.accepted); got != tt.want {
				t.Errorf("expected %s, got %s", tt.want, got)
			}
		})
	}
}

func TestNeedsAdapter_WorkingDirOnAnotherStorage(t *testing.T) {
	producer := NewStep(StepOptions{ID: "a", Type: domain.StepTypeStandard, OutputDir: "s3://bucket/work"})
	consumer := NewStep(StepOptions{ID: "b", Type: domain.StepTypeStandard, OutputDir: "/local/work"})

	format := &domain.DataFormat{Name: "text"}
	o := producer.AddOutputPort(PortSpec{Name: "out", Format: "text"}, format)
	i := consumer.AddInputPort(PortSpec{Name: "in", Format: "text", RequiredInWorkingDir: true}, format)

	if !NeedsAdapter(i, o) {
		t.Error("expected adapter for data on another storage")
	}

	consumer.OutputDir = "s3://bucket/other"
	if NeedsAdapter(i, o) {
		t.Error("same storage should not need adapter")
	}
}

func genomeFormats(t *testing.T) *domain.FormatRegistry {
	return testFormats(t,
		domain.DataFormat{Name: "fmt_f", Generator: "genf"},
		domain.DataFormat{Name: "fmt_g", Generator: "geng"},
	)
}

func TestResolve_SynthesizesGenerator(t *testing.T) {
	spec := &domain.WorkflowSpec{
		Steps: []domain.StepSpec{
			{ID: "index", Module: "indexer"},
		},
		Design: &domain.Design{Files: map[string][]string{"genome_fasta": {"/data/genome.fasta"}}},
	}
	modules := fakeProvider{
		"indexer": portModule("indexer", []PortSpec{inPort("desc", "genome_desc_txt")}, nil),
		"genomedescgenerator": portModule("genomedescgenerator",
			[]PortSpec{inPort("genome", "genome_fasta")},
			[]PortSpec{outPort("genomedesc", "genome_desc_txt")}),
	}

	w, err := buildWorkflow(t, spec, modules, Settings{}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []string{"root", "design", "checker", "genomedescgenerator", "first", "index"}
	if diff := cmp.Diff(want, stepIDs(w)); diff != "" {
		t.Fatalf("steps mismatch (-want +got):\n%s", diff)
	}

	gen := w.Steps()[3]
	if gen.Type != domain.StepTypeGenerator {
		t.Errorf("expected GENERATOR, got %s", gen.Type)
	}
	if gen.InputPort("genome").Link().Step() != w.DesignStep() {
		t.Error("generator input should be linked to design")
	}
	if w.Step("index").InputPort("desc").Link().Step() != gen {
		t.Error("index.desc should be linked to generator")
	}
}

func TestResolve_GeneratorOrdering(t *testing.T) {
	// geng потребляет fmt_f, поэтому genf должен оказаться раньше.
	tests := []struct {
		name   string
		inputs []PortSpec
	}{
		{
			name:   "consumer needs G first",
			inputs: []PortSpec{inPort("g", "fmt_g"), inPort("f", "fmt_f")},
		},
		{
			name:   "consumer needs F first",
			inputs: []PortSpec{inPort("f", "fmt_f"), inPort("g", "fmt_g")},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			modules := fakeProvider{
				"use":  portModule("use", tt.inputs, nil),
				"genf": portModule("genf", nil, []PortSpec{outPort("f", "fmt_f")}),
				"geng": portModule("geng", []PortSpec{inPort("f", "fmt_f")}, []PortSpec{outPort("g", "fmt_g")}),
			}
			spec := &domain.WorkflowSpec{
				Steps: []domain.StepSpec{{ID: "use", Module: "use"}},
			}

			w, err := buildWorkflow(t, spec, modules, Settings{}, genomeFormats(t))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			want := []string{"root", "design", "checker", "genf", "geng", "first", "use"}
			if diff := cmp.Diff(want, stepIDs(w)); diff != "" {
				t.Errorf("steps mismatch (-want +got):\n%s", diff)
			}

			geng := w.Steps()[4]
			if geng.InputPort("f").Link().Step() != w.Steps()[3] {
				t.Error("geng.f should be linked to genf")
			}
		})
	}
}

func TestResolve_Diverged(t *testing.T) {
	modules := fakeProvider{
		"use":  portModule("use", []PortSpec{inPort("f", "fmt_f")}, nil),
		"genf": portModule("genf", nil, []PortSpec{outPort("f", "fmt_f")}),
	}
	spec := &domain.WorkflowSpec{
		Steps: []domain.StepSpec{{ID: "use", Module: "use"}},
	}

	_, err := buildWorkflow(t, spec, modules, Settings{ResolveMaxPasses: 1}, genomeFormats(t))
	if !errors.Is(err, ErrResolveDiverged) {
		t.Errorf("expected ErrResolveDiverged, got %v", err)
	}
}

func TestResolve_Errors(t *testing.T) {
	twoReads := portModule("pair",
		[]PortSpec{inPort("r1", "reads_fastq"), inPort("r2", "reads_fastq")}, nil)

	tests := []struct {
		name    string
		steps   []domain.StepSpec
		modules fakeProvider
		wantErr error
	}{
		{
			name:    "unresolved input",
			steps:   []domain.StepSpec{{ID: "annot", Module: "annot"}},
			modules: fakeProvider{"annot": portModule("annot", []PortSpec{inPort("gff", "annotation_gff")}, nil)},
			wantErr: ErrUnresolvedInput,
		},
		{
			name:    "ambiguous ports",
			steps:   []domain.StepSpec{{ID: "pair", Module: "pair"}},
			modules: fakeProvider{"pair": twoReads},
			wantErr: ErrAmbiguousPorts,
		},
		{
			name: "manual link to unknown step",
			steps: []domain.StepSpec{{
				ID: "map", Module: "mapper",
				Inputs: map[string]domain.PortRef{"reads": {Step: "nope", Port: "reads_fastq"}},
			}},
			modules: mapperModules(),
			wantErr: ErrUnknownStep,
		},
		{
			name: "manual link to unknown output port",
			steps: []domain.StepSpec{{
				ID: "map", Module: "mapper",
				Inputs: map[string]domain.PortRef{"reads": {Step: "design", Port: "nope"}},
			}},
			modules: mapperModules(),
			wantErr: ErrUnknownPort,
		},
		{
			name: "manual link to unknown input port",
			steps: []domain.StepSpec{{
				ID: "map", Module: "mapper",
				Inputs: map[string]domain.PortRef{"nope": {Step: "design", Port: "reads_fastq"}},
			}},
			modules: mapperModules(),
			wantErr: ErrUnknownPort,
		},
		{
			name:    "unknown module",
			steps:   []domain.StepSpec{{ID: "x", Module: "missing"}},
			modules: fakeProvider{},
			wantErr: ErrUnknownModule,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec := &domain.WorkflowSpec{
				Steps:  tt.steps,
				Design: readsDesign("/data/s1.fq"),
			}
			_, err := buildWorkflow(t, spec, tt.modules, Settings{}, nil)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}

			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Errorf("expected ValidationError, got %T", err)
			}
		})
	}
}

func TestResolve_ManualLinksResolveAmbiguity(t *testing.T) {
	modules := fakeProvider{
		"pair": portModule("pair",
			[]PortSpec{inPort("r1", "reads_fastq"), inPort("r2", "reads_fastq")}, nil),
	}
	spec := &domain.WorkflowSpec{
		Steps: []domain.StepSpec{{
			ID: "pair", Module: "pair",
			Inputs: map[string]domain.PortRef{
				"r1": {Step: "design", Port: "reads_fastq"},
				"r2": {Step: "design", Port: "reads_fastq"},
			},
		}},
		Design: readsDesign("/data/s1.fq"),
	}

	w, err := buildWorkflow(t, spec, modules, Settings{}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	out := w.DesignStep().OutputPort("reads_fastq")
	if len(out.Links()) != 2 {
		t.Errorf("expected 2 links from design, got %d", len(out.Links()))
	}
}

func TestResolve_OutputCopySteps(t *testing.T) {
	modules := fakeProvider{
		"split": portModule("split",
			[]PortSpec{inPort("reads", "reads_fastq")},
			[]PortSpec{outPort("left", "reads_fastq"), outPort("report", "text")}),
	}
	spec := &domain.WorkflowSpec{
		Steps: []domain.StepSpec{
			{ID: "split", Module: "split"},
			{ID: "quiet", Module: "split", DiscardOutput: true},
		},
		Design: readsDesign("/data/s1.fq"),
	}

	w, err := buildWorkflow(t, spec, modules, Settings{OutputDir: "/out", WorkingDir: "/work"}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []string{"root", "design", "checker", "first", "split", "splitfinalize1", "splitfinalize2", "quiet"}
	if diff := cmp.Diff(want, stepIDs(w)); diff != "" {
		t.Fatalf("steps mismatch (-want +got):\n%s", diff)
	}

	split := w.Step("split")
	for i, port := range []string{"left", "report"} {
		fin := w.Steps()[5+i]
		if fin.OutputDir != "/out" {
			t.Errorf("%s: expected output dir /out, got %s", fin.ID, fin.OutputDir)
		}
		if fin.InputPort(port).Link() != split.OutputPort(port) {
			t.Errorf("%s should copy %s", fin.ID, port)
		}
	}

	// Повторное разрешение не добавляет адаптеров.
	if err := w.Resolve(); err != nil {
		t.Fatalf("second resolve: %v", err)
	}
	if diff := cmp.Diff(want, stepIDs(w)); diff != "" {
		t.Errorf("second resolve changed the workflow (-want +got):\n%s", diff)
	}
}

func TestResolve_TerminalDependencies(t *testing.T) {
	modules := mapperModules()
	modules["check"] = func() *fakeModule {
		return &fakeModule{
			name:     "check",
			inputs:   []PortSpec{inPort("reads", "reads_fastq")},
			outputs:  []PortSpec{outPort("report", "text")},
			terminal: true,
		}
	}
	spec := &domain.WorkflowSpec{
		Steps: []domain.StepSpec{
			{ID: "check", Module: "check"},
			{ID: "map", Module: "mapper"},
			{ID: "count", Module: "counter"},
		},
		Design: readsDesign("/data/s1.fq"),
	}

	w, err := buildWorkflow(t, spec, modules, Settings{}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	check := w.Step("check")
	for _, id := range []string{"map", "count"} {
		if !w.Step(id).DependsOn(check) {
			t.Errorf("%s should depend on terminal step", id)
		}
	}
}

func TestResolve_ExternalRequirements(t *testing.T) {
	withReqs := func(reqs ...domain.Requirement) fakeProvider {
		modules := mapperModules()
		modules["mapper"] = func() *fakeModule {
			return &fakeModule{
				name:    "mapper",
				inputs:  []PortSpec{inPort("reads", "reads_fastq")},
				outputs: []PortSpec{outPort("mapping", "mapper_results_sam")},
				reqs:    reqs,
			}
		}
		return modules
	}
	spec := &domain.WorkflowSpec{
		Steps: []domain.StepSpec{
			{ID: "map", Module: "mapper"},
			{ID: "map2", Module: "mapper"},
		},
		Design: readsDesign("/data/s1.fq"),
	}

	t.Run("installable", func(t *testing.T) {
		modules := withReqs(
			fakeRequirement{name: "bwa", installable: true},
			fakeRequirement{name: "samtools", available: true},
		)
		w, err := buildWorkflow(t, spec, modules, Settings{}, nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		want := []string{"root", "design", "checker", "bwainstall1", "first", "map", "map2"}
		if diff := cmp.Diff(want, stepIDs(w)); diff != "" {
			t.Errorf("steps mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("optional", func(t *testing.T) {
		modules := withReqs(fakeRequirement{name: "pigz", optional: true})
		w, err := buildWorkflow(t, spec, modules, Settings{}, nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(w.Steps()) != 6 {
			t.Errorf("optional requirement should not add steps: %v", stepIDs(w))
		}
	})

	t.Run("mandatory", func(t *testing.T) {
		modules := withReqs(fakeRequirement{name: "bwa"})
		_, err := buildWorkflow(t, spec, modules, Settings{}, nil)
		if !errors.Is(err, ErrRequirementUnavailable) {
			t.Errorf("expected ErrRequirementUnavailable, got %v", err)
		}
	})
}

func TestBuild_FirstAndEndSteps(t *testing.T) {
	modules := mapperModules()
	modules["report"] = portModule("report", nil, nil)

	spec := &domain.WorkflowSpec{
		FirstSteps: []domain.StepSpec{
			{ID: "prep1", Module: "report"},
			{ID: "prep2", Module: "report"},
		},
		Steps:    []domain.StepSpec{{ID: "map", Module: "mapper"}},
		EndSteps: []domain.StepSpec{{ID: "summary", Module: "report"}},
		Design:   readsDesign("/data/s1.fq"),
	}

	w, err := buildWorkflow(t, spec, modules, Settings{}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []string{"root", "design", "checker", "first", "prep1", "prep2", "map", "summary"}
	if diff := cmp.Diff(want, stepIDs(w)); diff != "" {
		t.Errorf("steps mismatch (-want +got):\n%s", diff)
	}

	// Шаг без выходов: все следующие шаги зависят от него.
	if !w.Step("map").DependsOn(w.Step("prep2")) {
		t.Error("map should depend on prep2")
	}
	if !w.Step("summary").DependsOn(w.Step("map")) {
		t.Error("summary should depend on map")
	}
}

func TestResolve_GeneratorWithoutOutput(t *testing.T) {
	modules := fakeProvider{
		"use":  portModule("use", []PortSpec{inPort("f", "fmt_f")}, nil),
		"genf": portModule("genf", nil, nil),
	}
	spec := &domain.WorkflowSpec{
		Steps: []domain.StepSpec{{ID: "use", Module: "use"}},
	}

	_, err := buildWorkflow(t, spec, modules, Settings{}, genomeFormats(t))
	if !errors.Is(err, ErrGeneratorWithoutOutput) {
		t.Errorf("expected ErrGeneratorWithoutOutput, got %v", err)
	}
}

// declaredGeneratorWorkflow собирает граф из шагов-генераторов,
// объявленных явно, минуя Build.
func declaredGeneratorWorkflow(t *testing.T, modules fakeProvider, steps ...*Step) (*Workflow, error) {
	t.Helper()
	w := NewWorkflow(Config{
		Settings: Settings{OutputDir: "/out"},
		Formats:  genomeFormats(t),
		Modules:  modules,
		Logger:   testLogger(),
	})
	for _, s := range steps {
		if err := w.AddStep(-1, s); err != nil {
			t.Fatalf("AddStep(%s) error = %v", s.ID, err)
		}
	}
	if err := w.AddFirstSteps(nil); err != nil {
		t.Fatal(err)
	}
	if err := w.Configure(); err != nil {
		t.Fatal(err)
	}
	return w, w.Resolve()
}

func TestResolve_DeclaredGeneratorsRelocated(t *testing.T) {
	modules := fakeProvider{
		"genf": portModule("genf", nil, []PortSpec{outPort("f", "fmt_f")}),
		"geng": portModule("geng", []PortSpec{inPort("f", "fmt_f")}, []PortSpec{outPort("g", "fmt_g")}),
		"use":  portModule("use", []PortSpec{inPort("g", "fmt_g")}, nil),
	}

	// make_g объявлен раньше make_f, но потребляет его формат.
	w, err := declaredGeneratorWorkflow(t, modules,
		NewStep(StepOptions{ID: "make_g", Type: domain.StepTypeGenerator, Module: "geng"}),
		NewStep(StepOptions{ID: "make_f", Type: domain.StepTypeGenerator, Module: "genf"}),
		NewStep(StepOptions{ID: "use", Type: domain.StepTypeStandard, Module: "use"}),
	)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}

	want := []string{"root", "design", "checker", "make_f", "make_g", "first", "use"}
	if diff := cmp.Diff(want, stepIDs(w)); diff != "" {
		t.Fatalf("steps mismatch (-want +got):\n%s", diff)
	}
	if w.Step("make_g").InputPort("f").Link().Step() != w.Step("make_f") {
		t.Error("make_g.f should be linked to make_f")
	}
	if w.Step("use").InputPort("g").Link().Step() != w.Step("make_g") {
		t.Error("use.g should be linked to make_g")
	}
}

func TestResolve_DeclaredGeneratorManyOutputs(t *testing.T) {
	modules := fakeProvider{
		"gen2": portModule("gen2", nil, []PortSpec{outPort("f", "fmt_f"), outPort("g", "fmt_g")}),
		"noop": portModule("noop", nil, nil),
	}

	_, err := declaredGeneratorWorkflow(t, modules,
		NewStep(StepOptions{ID: "gen2", Type: domain.StepTypeGenerator, Module: "gen2"}),
		NewStep(StepOptions{ID: "noop", Type: domain.StepTypeStandard, Module: "noop"}),
	)
	if !errors.Is(err, ErrGeneratorManyOutputs) {
		t.Errorf("expected ErrGeneratorManyOutputs, got %v", err)
	}
}
