package service

import (
	"encoding/json"
	"fmt"

	"go.uber.org/multierr"
)

// WorkerFailure - ошибка одного работника в пакетной операции
type WorkerFailure struct {
	WorkerID uint
	Op       string
	Err      error
}

func (f WorkerFailure) Error() string {
	return fmt.Sprintf("%s worker %d: %v", f.Op, f.WorkerID, f.Err)
}

func (f WorkerFailure) Unwrap() error {
	return f.Err
}

// MarshalJSON - текст ошибки вместо пустого объекта
func (f WorkerFailure) MarshalJSON() ([]byte, error) {
	out := struct {
		WorkerID uint   `json:"worker_id"`
		Op       string `json:"op"`
		Error    string `json:"error"`
	}{WorkerID: f.WorkerID, Op: f.Op}
	if f.Err != nil {
		out.Error = f.Err.Error()
	}
	return json.Marshal(out)
}

func combineFailures(failures []WorkerFailure) error {
	var err error
	for _, f := range failures {
		err = multierr.Append(err, f)
	}
	return err
}
