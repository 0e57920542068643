// Package workflowfile читает описание workflow из YAML или HCL файла.
//
// Формат определяется по расширению: .yaml, .yml и .json читаются как
// YAML, .hcl — как HCL. Файл может лежать в любом хранилище из
// storage.Registry.
//
// YAML:
//
//	name: rnaseq
//	globals:
//	  genome: /data/genome.fa
//	steps:
//	  - id: map
//	    module: shell
//	    parameters:
//	      inputs: "reads:reads_fastq"
//	      outputs: "mapping:mapper_results_sam"
//	      command: "mapper [[ .Input \"reads\" ]] > [[ .Output \"mapping\" ]]"
//	design:
//	  files:
//	    genome_fasta: [/data/genome.fa]
//	  samples:
//	    - id: s1
//	      files:
//	        reads_fastq: [/data/s1_1.fq.gz, /data/s1_2.fq.gz]
//
// HCL:
//
//	name = "rnaseq"
//
//	step "map" {
//	  module = "shell"
//	  parameters = {
//	    inputs  = "reads:reads_fastq"
//	    outputs = "mapping:mapper_results_sam"
//	  }
//	  input "reads" {
//	    step = "trim"
//	    port = "reads"
//	  }
//	}
//
//	design {
//	  files = { genome_fasta = ["/data/genome.fa"] }
//	  sample "s1" {
//	    files = { reads_fastq = ["/data/s1_1.fq.gz", "/data/s1_2.fq.gz"] }
//	  }
//	}
//
// Validate проверяет описание до построения графа: ID шагов, модули,
// явные связи, ресурсы и образцы design.
package workflowfile
