package engine

import (
	"github.com/shaiso/Seqflow/internal/domain"
	"github.com/shaiso/Seqflow/internal/storage"
)

// Причины вставки адаптера.
const (
	reasonWorkingDir  = "data required in working directory of another storage"
	reasonCompression = "compression not accepted"
	reasonDesign      = "design data with restricted compressions"
)

// NeedsAdapter решает, нужен ли шаг-адаптер между out и in.
//
// Проверки идут по порядку, срабатывает первая:
//  1. вход требует данные в рабочем каталоге, а хранилища шагов различаются;
//  2. сжатие выхода не входит в допустимые сжатия входа;
//  3. выход принадлежит DESIGN, а допустимы не все сжатия.
//
// Проверки применяются только к непропущенным STANDARD и GENERATOR шагам.
func NeedsAdapter(in *InputPort, out *OutputPort) bool {
	return adapterReason(in, out) != ""
}

func adapterReason(in *InputPort, out *OutputPort) string {
	consumer := in.Step()
	producer := out.Step()

	if !checksCompatibility(consumer) {
		return ""
	}

	if in.RequiredInWorkingDir && storage.Scheme(consumer.OutputDir) != storage.Scheme(producer.OutputDir) {
		return reasonWorkingDir
	}

	if !in.Compressions.Contains(out.Compression) {
		return reasonCompression
	}

	if producer.Type == domain.StepTypeDesign && !in.Compressions.IsAll() {
		return reasonDesign
	}

	return ""
}

func checksCompatibility(s *Step) bool {
	if s.Skip {
		return false
	}
	switch s.Type {
	case domain.StepTypeStandard, domain.StepTypeGenerator:
		return true
	case domain.StepTypeRoot, domain.StepTypeDesign, domain.StepTypeChecker, domain.StepTypeFirst:
		return false
	}
	return false
}

// AdapterCompression выбирает сжатие выхода адаптера: сжатие производителя,
// если оно допустимо, иначе NONE, если допустимо, иначе первое допустимое
// в каноническом порядке (GZIP, BZIP2, NONE).
func AdapterCompression(produced domain.Compression, accepted domain.CompressionSet) domain.Compression {
	if accepted.Contains(produced) {
		return produced
	}
	if accepted.Contains(domain.CompressionNone) {
		return domain.CompressionNone
	}
	if first, ok := accepted.First(); ok {
		return first
	}
	return domain.CompressionNone
}

// isProducer возвращает true для типов шагов, выходы которых могут
// быть источником данных при автоматическом поиске.
func isProducer(t domain.StepType) bool {
	switch t {
	case domain.StepTypeStandard, domain.StepTypeGenerator, domain.StepTypeDesign:
		return true
	case domain.StepTypeRoot, domain.StepTypeChecker, domain.StepTypeFirst:
		return false
	}
	return false
}
