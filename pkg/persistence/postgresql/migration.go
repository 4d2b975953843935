package postgresql

func migrations() map[int]string {
	return map[int]string{
		1: `
			CREATE TABLE registration_requests (
				id UUID PRIMARY KEY,
				type VARCHAR(50) NOT NULL CHECK (type IN ('student', 'staff', 'hod', 'principal')),
				name VARCHAR(255) NOT NULL,
				email VARCHAR(255) NOT NULL,
				department_id VARCHAR(255) NOT NULL,
				college_id VARCHAR(255) NOT NULL,
				class_id VARCHAR(255),
				status VARCHAR(50) NOT NULL CHECK (status IN ('pending', 'approved', 'rejected', 'activated')),
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE INDEX idx_registration_requests_status ON registration_requests(status);
			CREATE INDEX idx_registration_requests_college_id ON registration_requests(college_id);

			CREATE TABLE identities (
				id UUID PRIMARY KEY,
				name VARCHAR(255) NOT NULL,
				email VARCHAR(255) NOT NULL,
				role VARCHAR(50) NOT NULL CHECK (role IN ('staff', 'hod', 'principal', 'admin')),
				department_id VARCHAR(255),
				college_id VARCHAR(255),
				class_in_charge_id VARCHAR(255),
				active BOOLEAN NOT NULL DEFAULT true,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE INDEX idx_identities_role ON identities(role);
			CREATE INDEX idx_identities_department_id ON identities(department_id);
			CREATE INDEX idx_identities_college_id ON identities(college_id);
			CREATE INDEX idx_identities_class_in_charge_id ON identities(class_in_charge_id);

			CREATE TABLE approval_workflows (
				id UUID PRIMARY KEY,
				request_type VARCHAR(50) NOT NULL CHECK (request_type IN ('student', 'staff', 'hod', 'principal')),
				request_id UUID NOT NULL,
				current_approver_role VARCHAR(50) NOT NULL CHECK (current_approver_role IN ('staff', 'hod', 'principal', 'admin')),
				current_approver_id UUID,
				status VARCHAR(50) NOT NULL CHECK (status IN ('pending', 'approved', 'rejected', 'escalated')),
				approved_by UUID,
				approved_at TIMESTAMP WITH TIME ZONE,
				rejection_reason TEXT,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE INDEX idx_approval_workflows_request_id ON approval_workflows(request_id);
			CREATE INDEX idx_approval_workflows_status ON approval_workflows(status);
			CREATE INDEX idx_approval_workflows_role ON approval_workflows(current_approver_role);
			CREATE INDEX idx_approval_workflows_created_at ON approval_workflows(created_at);

			-- One pending step per request, enforced by the database rather
			-- than application discipline.
			CREATE UNIQUE INDEX idx_approval_workflows_single_pending
				ON approval_workflows(request_id)
				WHERE status = 'pending';
		`,
	}
}
