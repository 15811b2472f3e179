// Package config defines the format-agnostic launcher configuration model
// and the Loader interface that fills it. The concrete HCL implementation
// lives in the hcl_adapter package.
package config
