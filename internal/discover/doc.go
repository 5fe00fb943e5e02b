// Package discover finds the configuration layers that apply to a working
// directory and orders them from lowest to highest precedence.
package discover
