package memory

import "errors"

var (
	errDuplicateAnswer   = errors.New("answer already exists for user and question")
	errDuplicateProgress = errors.New("progress record already exists for user and lesson")
)
