package fleet

import (
	"github.com/heartportal/fleet-sentinel/pkg/errors"
)

// ValidateServiceName validates service name format and constraints
func ValidateServiceName(name string) error {
	if name == "" {
		return errors.NewValidationError("service name cannot be empty", nil)
	}

	if len(name) > 64 {
		return errors.NewValidationError("service name cannot exceed 64 characters", nil)
	}

	for _, char := range name {
		if !isValidNameChar(char) {
			return errors.NewValidationError("service name contains invalid characters: only letters, numbers, hyphens, and underscores are allowed", nil)
		}
	}

	return nil
}

// ValidatePort validates port number
func ValidatePort(port int) error {
	if port <= 0 || port > 65535 {
		return errors.NewValidationError("port must be between 1 and 65535", nil)
	}
	return nil
}

// ValidateDescriptor validates a single service descriptor
func ValidateDescriptor(descriptor ServiceDescriptor) error {
	if err := ValidateServiceName(descriptor.Name); err != nil {
		return err
	}

	if len(descriptor.Ports) == 0 {
		return errors.NewValidationError("service must declare at least one port", nil).WithContext("service", descriptor.Name)
	}

	for _, port := range descriptor.Ports {
		if err := ValidatePort(port); err != nil {
			return errors.NewValidationError("invalid service port", err).WithContext("service", descriptor.Name).WithContext("port", port)
		}
	}

	return nil
}

func isValidNameChar(char rune) bool {
	return (char >= 'a' && char <= 'z') ||
		(char >= 'A' && char <= 'Z') ||
		(char >= '0' && char <= '9') ||
		char == '-' || char == '_'
}
