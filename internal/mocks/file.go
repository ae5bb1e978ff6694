package mocks

import "github.com/stretchr/testify/mock"

// MockFileOperations is a mock implementation of file.FileOperations.
type MockFileOperations struct {
	mock.Mock
}

func (m *MockFileOperations) IsFileExists(path string) (bool, error) {
	args := m.Called(path)
	return args.Bool(0), args.Error(1)
}

func (m *MockFileOperations) ReadFileRaw(path string) ([]byte, error) {
	args := m.Called(path)
	if data, ok := args.Get(0).([]byte); ok {
		return data, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockFileOperations) ReadJsonFile(path string, v any) error {
	return m.Called(path, v).Error(0)
}

func (m *MockFileOperations) ReadYamlFile(path string, v any) error {
	return m.Called(path, v).Error(0)
}

func (m *MockFileOperations) WriteJsonFile(path string, v any) error {
	return m.Called(path, v).Error(0)
}
