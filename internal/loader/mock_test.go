package loader

type mockObjectLoader struct {
	objectToReturn []byte
	errorToReturn  error

	loadCalled bool
}

func newMockObjectLoader(objectToReturn []byte, errorToReturn error) *mockObjectLoader {
	return &mockObjectLoader{
		objectToReturn: objectToReturn,
		errorToReturn:  errorToReturn,
	}
}

func (ml *mockObjectLoader) Load() ([]byte, error) {
	ml.loadCalled = true

	if ml.errorToReturn != nil {
		return nil, ml.errorToReturn
	}

	return ml.objectToReturn, nil
}

type mockModule struct {
	programsToReturn map[string]Program

	getProgramErrorToReturn error

	getProgramCalled bool

	receivedProgramNames []string
}

func newMockModule(programsToReturn map[string]Program, getProgramErrorToReturn error) *mockModule {
	return &mockModule{
		programsToReturn:        programsToReturn,
		getProgramErrorToReturn: getProgramErrorToReturn,
	}
}

func (mm *mockModule) LoadObject() error {
	return nil
}

func (mm *mockModule) GetProgram(name string) (Program, error) {
	mm.getProgramCalled = true
	mm.receivedProgramNames = append(mm.receivedProgramNames, name)

	if mm.getProgramErrorToReturn != nil {
		return nil, mm.getProgramErrorToReturn
	}

	return mm.programsToReturn[name], nil
}

func (mm *mockModule) GetMap(name string) (Map, error) {
	return nil, nil
}

func (mm *mockModule) Close() {}

type mockProgram struct {
	errorToReturn error

	attachTracepointCalled bool
	receivedTracepointName string
}

func newMockProgram(errorToReturn error) *mockProgram {
	return &mockProgram{errorToReturn: errorToReturn}
}

func (mp *mockProgram) AttachTracepoint(tracepoint string) error {
	mp.attachTracepointCalled = true
	mp.receivedTracepointName = tracepoint

	if mp.errorToReturn != nil {
		return mp.errorToReturn
	}

	return nil
}
