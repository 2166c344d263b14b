package loader

import bpf "github.com/aquasecurity/libbpfgo"

// Program is an interface which describes objects representing BPF programs.
type Program interface {
	AttachTracepoint(tracepoint string) error
}

// LibBPFGoProgram is a wrapper around a libbpfgo BPFProg,
// allowing the API to be simplified to simplify mocking.
type libBPFGoProgram struct {
	program *bpf.BPFProg
}

func newLibBPFGoProgram(program *bpf.BPFProg) *libBPFGoProgram {
	return &libBPFGoProgram{program}
}

// AttachTracepoint attaches this program to the provided kernel tracepoint.
// The tracepoint should be supplied in format `category:name`.
func (p *libBPFGoProgram) AttachTracepoint(tracepoint string) error {
	_, err := p.program.AttachTracepoint(tracepoint)
	return err
}
