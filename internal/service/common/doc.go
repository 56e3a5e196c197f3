// Package common holds small helpers shared by the stand services.
package common
