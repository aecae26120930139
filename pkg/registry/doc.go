/*
Package registry discovers the plugins available to the engine and resolves the
names used in a task definition to the things they denote.

Plugins register their factories with a Catalog, either explicitly through
NewCatalog or process-wide through Register, usually from an init function.
From a Catalog and a configuration the package builds three read-only views:

  - Actions resolves action aliases to built actions.
  - Nodes resolves node factory names to node factories.
  - Consumers builds the configured fragment events consumers.
*/
package registry
