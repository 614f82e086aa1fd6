package carfile

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/signalsfoundry/suspension-kinematics/core"
	"github.com/signalsfoundry/suspension-kinematics/model"
)

// Extension is the file extension of saved-state files.
const Extension = ".car"

// Open loads a car from path, choosing the JSON loader for ".json" files and
// the saved-state reader otherwise. Cars without a name take the file's base
// name.
func Open(path string) (*model.Car, error) {
	if !isJSON(path) {
		return ReadFile(path)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	car, err := core.LoadCar(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if car.Name == "" {
		car.Name = baseName(path)
	}
	return car, nil
}

// Save writes car to path in the format its extension selects.
func Save(path string, car *model.Car) error {
	if !isJSON(path) {
		return WriteFile(path, car)
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := core.WriteCar(f, car); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func isJSON(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".json")
}

func baseName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
